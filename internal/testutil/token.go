package testutil

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// Token signs a session token carrying the given numeric id claim.
func Token(t *testing.T, userID any) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":    userID,
		"email": "shopper@example.com",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
