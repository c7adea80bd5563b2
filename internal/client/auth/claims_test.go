package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		},
		UserID: userID,
	})
	s, err := token.SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestInspect_ReadsClaimsWithoutKey(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)

	info, err := Inspect(signed(t, "u1", exp))
	require.NoError(t, err)

	assert.Equal(t, "u1", info.UserID)
	assert.True(t, info.ExpiresAt.Equal(exp))
	assert.False(t, info.Expired(time.Now()))
	assert.InDelta(t, (30 * time.Minute).Seconds(), info.Remaining(time.Now()).Seconds(), 5)
}

func TestInspect_Expired(t *testing.T) {
	info, err := Inspect(signed(t, "u1", time.Now().Add(-time.Minute)))
	require.NoError(t, err, "expired tokens still decode")

	assert.True(t, info.Expired(time.Now()))
	assert.Zero(t, info.Remaining(time.Now()))
}

func TestInspect_Opaque(t *testing.T) {
	_, err := Inspect("abc")
	assert.ErrorIs(t, err, ErrNotJWT)
}

func TestTokenInfo_NoExpiry(t *testing.T) {
	info := &TokenInfo{}
	assert.False(t, info.Expired(time.Now()))
	assert.Zero(t, info.Remaining(time.Now()))
}
