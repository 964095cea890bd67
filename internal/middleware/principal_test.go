package middleware_test

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/middleware"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/utils"
)

const testSecret = "middleware-test-secret"

func doRequest(t *testing.T, authHeader string) (*httptest.ResponseRecorder, bool) {
    t.Helper()
    e := echo.New()
    var sawPrincipal bool
    h := middleware.ResolvePrincipal(testSecret)(func(c echo.Context) error {
        _, sawPrincipal = middleware.GetPrincipal(c)
        return c.NoContent(http.StatusOK)
    })

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    if authHeader != "" {
        req.Header.Set(echo.HeaderAuthorization, authHeader)
    }
    rec := httptest.NewRecorder()
    require.NoError(t, h(e.NewContext(req, rec)))
    return rec, sawPrincipal
}

func TestResolvePrincipalMissingHeader(t *testing.T) {
    rec, saw := doRequest(t, "")
    require.Equal(t, http.StatusUnauthorized, rec.Code)
    require.False(t, saw)
}

func TestResolvePrincipalGarbageToken(t *testing.T) {
    rec, saw := doRequest(t, "Bearer not.a.jwt")
    require.Equal(t, http.StatusUnauthorized, rec.Code)
    require.False(t, saw)
}

func TestResolvePrincipalWrongSecret(t *testing.T) {
    tok, err := utils.NewAccessToken("some-other-secret", "user-1", nil, "super_admin", 1)
    require.NoError(t, err)

    rec, saw := doRequest(t, "Bearer "+tok.Token)
    require.Equal(t, http.StatusUnauthorized, rec.Code)
    require.False(t, saw)
}

func TestResolvePrincipalTenantUser(t *testing.T) {
    tenantID := "tenant-1"
    tok, err := utils.NewAccessToken(testSecret, "user-1", &tenantID, "user", 1)
    require.NoError(t, err)

    e := echo.New()
    h := middleware.ResolvePrincipal(testSecret)(func(c echo.Context) error {
        p, ok := middleware.GetPrincipal(c)
        require.True(t, ok)
        require.Equal(t, "user-1", p.UserID)
        require.Equal(t, model.RoleUser, p.Role)
        require.NotNil(t, p.TenantID)
        require.Equal(t, tenantID, *p.TenantID)
        return c.NoContent(http.StatusOK)
    })

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
    rec := httptest.NewRecorder()
    require.NoError(t, h(e.NewContext(req, rec)))
    require.Equal(t, http.StatusOK, rec.Code)
}

func TestResolvePrincipalSuperAdmin(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, "root", nil, "super_admin", 1)
    require.NoError(t, err)

    e := echo.New()
    h := middleware.ResolvePrincipal(testSecret)(func(c echo.Context) error {
        p, ok := middleware.GetPrincipal(c)
        require.True(t, ok)
        require.Nil(t, p.TenantID)
        require.True(t, p.IsSuperAdmin())
        return c.NoContent(http.StatusOK)
    })

    req := httptest.NewRequest(http.MethodGet, "/", nil)
    req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
    rec := httptest.NewRecorder()
    require.NoError(t, h(e.NewContext(req, rec)))
    require.Equal(t, http.StatusOK, rec.Code)
}

// A token whose role exists but whose tenant is missing is only valid for
// the super_admin.
func TestResolvePrincipalTenantlessUserRejected(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, "user-1", nil, "tenant_admin", 1)
    require.NoError(t, err)

    rec, saw := doRequest(t, "Bearer "+tok.Token)
    require.Equal(t, http.StatusUnauthorized, rec.Code)
    require.False(t, saw)
}
