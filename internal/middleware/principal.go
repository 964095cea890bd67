package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/model"
)

// principalKey is the context key the resolved Principal is stored under.
const principalKey = "principal"

// ResolvePrincipal returns an Echo middleware that validates a Bearer
// access token and materializes its claims into a single immutable
// auth.Principal stored in the request context.  Handlers obtain it via
// GetPrincipal and pass it explicitly into the authorization engine;
// nothing downstream re-reads raw claims.  Requests with a missing or
// invalid credential are rejected with 401 before any core code runs.
func ResolvePrincipal(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            header := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(header, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "missing bearer token"})
            }
            raw := strings.TrimPrefix(header, "Bearer ")

            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                // Only HS256 family tokens are accepted.
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid token"})
            }
            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid claims"})
            }

            userID, _ := claims["userId"].(string)
            if userID == "" {
                // Fall back to the standard subject claim.
                userID, _ = claims["sub"].(string)
            }
            roleStr, _ := claims["role"].(string)
            role, okRole := model.ParseRole(roleStr)
            if userID == "" || !okRole {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid claims"})
            }

            p := auth.Principal{UserID: userID, Role: role}
            if tid, ok := claims["tenantId"].(string); ok && tid != "" {
                p.TenantID = &tid
            }
            // Invariant from the data model: only the super_admin may lack
            // a tenant.
            if p.TenantID == nil && p.Role != model.RoleSuperAdmin {
                return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "invalid claims"})
            }

            c.Set(principalKey, p)
            return next(c)
        }
    }
}

// GetPrincipal extracts the Principal stored by ResolvePrincipal.  The
// boolean result is false when the middleware did not run, which means the
// route was wired incorrectly.
func GetPrincipal(c echo.Context) (auth.Principal, bool) {
    p, ok := c.Get(principalKey).(auth.Principal)
    return p, ok
}
