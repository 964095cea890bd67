package utils // package utils provides helpers for token issuing, hashing and validation

import (
    "time" // time utilities for expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.  The token is carried in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The claims
// carry the principal triple the middleware reconstructs on every request:
// userId, tenantId (null for the super_admin) and role, plus standard
// sub/exp/iat.  ttlHours controls the token lifetime.
func NewAccessToken(secret, userID string, tenantID *string, role string, ttlHours int) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(time.Duration(ttlHours) * time.Hour)
    claims := jwt.MapClaims{
        "sub":    userID,
        "userId": userID,
        "role":   role,
        "exp":    exp.Unix(),
        "iat":    now.Unix(),
    }
    if tenantID != nil {
        claims["tenantId"] = *tenantID
    } else {
        claims["tenantId"] = nil
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
