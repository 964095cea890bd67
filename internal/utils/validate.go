package utils

import (
    "regexp"
    "strings"

    "github.com/google/uuid"
)

// emailRe matches anything of the shape local@domain.tld without
// whitespace.  Deliverability is the mail server's problem.
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// subdomainRe matches lowercase alphanumeric labels with interior
// hyphens.  Length bounds are checked separately.
var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// IsValidEmail reports whether s looks like an email address.
func IsValidEmail(s string) bool {
    return emailRe.MatchString(s)
}

// IsValidSubdomain reports whether s is a usable tenant subdomain:
// lowercase alphanumeric plus hyphen, 3-63 characters, no leading or
// trailing hyphen.
func IsValidSubdomain(s string) bool {
    if len(s) < 3 || len(s) > 63 {
        return false
    }
    return subdomainRe.MatchString(s)
}

// IsValidPassword enforces the minimum password length of 8 characters.
func IsValidPassword(s string) bool {
    return len(s) >= 8
}

// IsValidUUID reports whether s parses as a UUID.
func IsValidUUID(s string) bool {
    _, err := uuid.Parse(s)
    return err == nil
}

// NewID returns a fresh UUIDv4 string for entity primary keys.
func NewID() string {
    return uuid.NewString()
}

// NormalizeEmail lowercases and trims an email for storage and lookup;
// uniqueness within a tenant is case-insensitive.
func NormalizeEmail(s string) string {
    return strings.ToLower(strings.TrimSpace(s))
}
