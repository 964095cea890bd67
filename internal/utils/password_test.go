package utils_test

import (
    "testing"

    "golang.org/x/crypto/bcrypt"

    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/utils"
)

func TestPasswordHashRoundTrip(t *testing.T) {
    hash, err := utils.HashPassword("correct horse battery", bcrypt.MinCost)
    require.NoError(t, err)
    require.NotEqual(t, "correct horse battery", hash)

    require.True(t, utils.VerifyPassword(hash, "correct horse battery"))
    require.False(t, utils.VerifyPassword(hash, "wrong password"))
    require.False(t, utils.VerifyPassword("not-a-hash", "anything"))
}
