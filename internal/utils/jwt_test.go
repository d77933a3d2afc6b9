package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	secret := WebAppSecret(testBotToken)
	now := time.Now()

	token, err := GenerateJWT(TelegramUser{ID: 42, FirstName: "Ann", Username: "ann"}, secret, time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseJWT(token, secret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ann", claims.Username)
	assert.True(t, claims.TelegramAuth)
}

func TestJWT_Rejections(t *testing.T) {
	secret := []byte("secret")
	user := TelegramUser{ID: 1}

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateJWT(user, secret, time.Hour, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		_, err = ParseJWT(token, secret)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign signature", func(t *testing.T) {
		token, err := GenerateJWT(user, []byte("other"), time.Hour, time.Now())
		require.NoError(t, err)
		_, err = ParseJWT(token, secret)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("not a telegram token", func(t *testing.T) {
		claims := Claims{
			UserID:           1,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		_, err = ParseJWT(token, secret)
		assert.ErrorIs(t, err, ErrNotTelegramToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseJWT("not.a.token", secret)
		assert.Error(t, err)
	})
}
