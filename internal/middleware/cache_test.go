package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/model"
)

func cacheTestContext(t *testing.T, target string) echo.Context {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(http.MethodGet, target, nil)
    c := e.NewContext(req, httptest.NewRecorder())
    // Same route pattern for every id, as the router would set it.
    c.SetPath("/api/tenants/:tenantId")
    return c
}

func setTestPrincipal(c echo.Context, userID string, tenantID *string) {
    c.Set(principalKey, auth.Principal{UserID: userID, TenantID: tenantID, Role: model.RoleTenantAdmin})
}

// Two tenants hitting the same route pattern must never share an entry,
// even with identical principals absent: the key is derived from the
// resolved URI, not the pattern.
func TestCacheKeyVariesByResolvedURI(t *testing.T) {
    a := cacheTestContext(t, "/api/tenants/tenant-a")
    b := cacheTestContext(t, "/api/tenants/tenant-b")
    require.NotEqual(t, cacheKey("taskhub:cache", a), cacheKey("taskhub:cache", b))

    withQuery := cacheTestContext(t, "/api/tenants/tenant-a?page=2")
    require.NotEqual(t, cacheKey("taskhub:cache", a), cacheKey("taskhub:cache", withQuery))
}

// The same URL requested by two different principals gets two entries.
func TestCacheKeyVariesByPrincipal(t *testing.T) {
    tenantA, tenantB := "tenant-a", "tenant-b"

    a := cacheTestContext(t, "/api/tenants/tenant-a")
    setTestPrincipal(a, "user-1", &tenantA)
    b := cacheTestContext(t, "/api/tenants/tenant-a")
    setTestPrincipal(b, "user-2", &tenantB)
    require.NotEqual(t, cacheKey("taskhub:cache", a), cacheKey("taskhub:cache", b))

    // An unauthenticated request never maps onto an authenticated entry.
    anon := cacheTestContext(t, "/api/tenants/tenant-a")
    require.NotEqual(t, cacheKey("taskhub:cache", a), cacheKey("taskhub:cache", anon))
}

// With no principal resolved the raw credential still partitions the key.
func TestCacheKeyVariesByAuthorizationHeader(t *testing.T) {
    a := cacheTestContext(t, "/api/tenants/tenant-a")
    a.Request().Header.Set(echo.HeaderAuthorization, "Bearer token-one")
    b := cacheTestContext(t, "/api/tenants/tenant-a")
    b.Request().Header.Set(echo.HeaderAuthorization, "Bearer token-two")
    require.NotEqual(t, cacheKey("taskhub:cache", a), cacheKey("taskhub:cache", b))
}

func TestCacheKeyIsStable(t *testing.T) {
    tenantA := "tenant-a"
    a := cacheTestContext(t, "/api/tenants/tenant-a")
    setTestPrincipal(a, "user-1", &tenantA)
    b := cacheTestContext(t, "/api/tenants/tenant-a")
    setTestPrincipal(b, "user-1", &tenantA)
    require.Equal(t, cacheKey("taskhub:cache", a), cacheKey("taskhub:cache", b))
}

func TestUnpackEntryRejectsCorruptData(t *testing.T) {
    for _, raw := range [][]byte{nil, {1, 2, 3}, {0, 0, 0, 200, 0, 0, 0, 99}} {
        _, _, _, ok := unpackEntry(raw)
        require.False(t, ok)
    }
}

func TestEntryRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": []string{echo.MIMEApplicationJSON}}
    body := []byte(`{"success":true}`)

    raw, err := packEntry(http.StatusOK, hdr, body)
    require.NoError(t, err)

    status, gotHdr, gotBody, ok := unpackEntry(raw)
    require.True(t, ok)
    require.Equal(t, http.StatusOK, status)
    require.Equal(t, echo.MIMEApplicationJSON, gotHdr.Get("Content-Type"))
    require.Equal(t, body, gotBody)
}
