package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAccessClaimsFromToken(t *testing.T) {
	secret := []byte("test-secret")

	tok, err := NewAccessToken(secret, "8f7a1c7e-2d7e-4c9b-9d7a-3c1f0b1e2a4d", "a@b.c", "user", time.Minute)
	require.NoError(t, err)

	claims, err := AccessClaimsFromToken(tok, secret)
	require.NoError(t, err)
	require.Equal(t, "8f7a1c7e-2d7e-4c9b-9d7a-3c1f0b1e2a4d", claims.Subject)
	require.Equal(t, "a@b.c", claims.Email)
	require.Equal(t, "user", claims.Role)

	_, err = AccessClaimsFromToken(tok, []byte("other"))
	require.Error(t, err)

	expired, err := NewAccessToken(secret, "u", "", "user", -time.Minute)
	require.NoError(t, err)
	_, err = AccessClaimsFromToken(expired, secret)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}
