package utils_test

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/utils"
)

const testSecret = "test-secret-do-not-use"

func parseClaims(t *testing.T, token string) jwt.MapClaims {
    t.Helper()
    parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
        return []byte(testSecret), nil
    })
    require.NoError(t, err)
    require.True(t, parsed.Valid)
    claims, ok := parsed.Claims.(jwt.MapClaims)
    require.True(t, ok)
    return claims
}

func TestNewAccessTokenTenantUser(t *testing.T) {
    tenantID := "tenant-1"
    tok, err := utils.NewAccessToken(testSecret, "user-1", &tenantID, "tenant_admin", 24)
    require.NoError(t, err)
    require.NotEmpty(t, tok.Token)
    require.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), tok.Exp, 5*time.Second)

    claims := parseClaims(t, tok.Token)
    require.Equal(t, "user-1", claims["sub"])
    require.Equal(t, "user-1", claims["userId"])
    require.Equal(t, "tenant_admin", claims["role"])
    require.Equal(t, "tenant-1", claims["tenantId"])
}

func TestNewAccessTokenSuperAdmin(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, "root", nil, "super_admin", 1)
    require.NoError(t, err)

    claims := parseClaims(t, tok.Token)
    require.Equal(t, "super_admin", claims["role"])
    require.Contains(t, claims, "tenantId")
    require.Nil(t, claims["tenantId"])
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
    tok, err := utils.NewAccessToken(testSecret, "user-1", nil, "super_admin", 1)
    require.NoError(t, err)

    _, err = jwt.Parse(tok.Token, func(tok *jwt.Token) (interface{}, error) {
        return []byte("other-secret"), nil
    })
    require.Error(t, err)
}
