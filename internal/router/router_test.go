package router_test

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/middleware"
    "github.com/dmarkova/taskhub/internal/router"
    "github.com/dmarkova/taskhub/internal/utils"
)

const testSecret = "router-test-secret"

// spy short-circuits the chain so no handler (and no database) runs; it
// only records whether a principal was visible at its position.
func spyMiddleware(saw *bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            _, *saw = middleware.GetPrincipal(c)
            return c.NoContent(http.StatusOK)
        }
    }
}

// Per-user rate buckets and per-user cache keys only work if the protect
// chain runs after the bearer token is resolved into a principal.
func TestProtectRunsAfterPrincipalResolution(t *testing.T) {
    e := echo.New()
    var saw bool
    router.RegisterAPI(e, router.Handlers{}, testSecret, spyMiddleware(&saw))

    tenantID := "tenant-1"
    tok, err := utils.NewAccessToken(testSecret, "user-1", &tenantID, "tenant_admin", 1)
    require.NoError(t, err)

    req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    require.Equal(t, http.StatusOK, rec.Code)
    require.True(t, saw, "protect middleware must see the resolved principal")
}

// Unauthenticated requests to protected routes are rejected before the
// protect chain or any handler runs.
func TestProtectedRoutesRejectMissingToken(t *testing.T) {
    e := echo.New()
    var saw bool
    router.RegisterAPI(e, router.Handlers{}, testSecret, spyMiddleware(&saw))

    req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    require.Equal(t, http.StatusUnauthorized, rec.Code)
    require.False(t, saw)
}

// The open auth endpoints still get the protect chain, without a
// principal requirement.
func TestOpenRoutesCarryProtectChain(t *testing.T) {
    e := echo.New()
    var saw bool
    router.RegisterAPI(e, router.Handlers{}, testSecret, spyMiddleware(&saw))

    req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)

    require.Equal(t, http.StatusOK, rec.Code)
    require.False(t, saw, "no principal on the open group")
}
