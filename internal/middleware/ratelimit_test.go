package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/config"
    "github.com/dmarkova/taskhub/internal/model"
)

// Under the user strategy each principal gets its own bucket; requests
// without a principal share the anonymous one.
func TestRateKeyPartitionsByPrincipal(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "taskhub:rl", KeyStrategy: "user"}
    e := echo.New()
    newCtx := func() echo.Context {
        req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
        return e.NewContext(req, httptest.NewRecorder())
    }

    a := newCtx()
    a.Set(principalKey, auth.Principal{UserID: "user-1", Role: model.RoleUser})
    b := newCtx()
    b.Set(principalKey, auth.Principal{UserID: "user-2", Role: model.RoleUser})
    anon := newCtx()

    keyA := buildRateKey(cfg, a)
    keyB := buildRateKey(cfg, b)
    require.NotEqual(t, keyA, keyB)
    require.Equal(t, "taskhub:rl:user:user-1", keyA)
    require.Equal(t, "taskhub:rl:user:anon", buildRateKey(cfg, anon))
}
