// Package apperr defines the error taxonomy shared by the repository and
// handler layers.  Repositories return these values (or wrap them) and
// handlers translate them to HTTP responses; nothing below the handler
// layer knows about status codes.
package apperr

import (
    "errors"
    "fmt"
)

// ErrNotFound is returned when an id does not resolve to a row the caller
// can address.  Cross-tenant lookups by non-super-admin principals scope
// the query to the caller's tenant, so a foreign id behaves exactly like a
// missing one and resource existence never leaks.  Maps to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrAccessDenied is returned when an authorization rule rejected the
// request for a resource the caller could otherwise read.  Maps to 403.
var ErrAccessDenied = errors.New("access denied")

// ErrConflict is returned on uniqueness violations (subdomain, per-tenant
// email).  The client should retry with different input; the server never
// retries on its own.  Maps to 409.
var ErrConflict = errors.New("conflict")

// Validation marks client-fixable input errors: missing fields, malformed
// enums, bad references.  Maps to 400.
type Validation struct {
    Msg string
}

func (e *Validation) Error() string { return e.Msg }

// Validationf builds a Validation error with a formatted message.
func Validationf(format string, args ...interface{}) error {
    return &Validation{Msg: fmt.Sprintf(format, args...)}
}

// LimitExceeded is returned when a plan ceiling blocks an insert.  It
// carries the observed count and the limit so clients can surface an
// upgrade prompt.  Maps to 409.
type LimitExceeded struct {
    Kind    string // "users" or "projects"
    Current int
    Limit   int
}

func (e *LimitExceeded) Error() string {
    return fmt.Sprintf("%s limit reached for this tenant (%d/%d)", e.Kind, e.Current, e.Limit)
}
