package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	signed, err := BuildJWTString("secret", 42, time.Hour)
	require.NoError(t, err)

	userID, err := GetUserID("secret", signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	_, err = GetUserID("other", signed)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = GetUserID("secret", "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpired(t *testing.T) {
	signed, err := BuildJWTString("secret", 42, -time.Minute)
	require.NoError(t, err)

	_, err = GetUserID("secret", signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWithoutUser(t *testing.T) {
	signed, err := BuildJWTString("secret", 0, time.Hour)
	require.NoError(t, err)

	_, err = GetUserID("secret", signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}
