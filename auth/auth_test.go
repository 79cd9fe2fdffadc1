package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tripweave/tripweave-core/errors"
)

const testSecret = "test-secret-key-for-auth-tests-0123456789"

func signToken(t *testing.T, claims jwt.Claims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIdentityFromContext(t *testing.T) {
	t.Run("returns the stored identity", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), Identity{ID: "user-1", Email: "owner@example.com"})
		identity, err := IdentityFromContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user-1", identity.ID)
		assert.Equal(t, "owner@example.com", identity.Email)
	})

	t.Run("missing identity is an authentication error", func(t *testing.T) {
		_, err := IdentityFromContext(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.AuthError))
	})

	t.Run("identity without a user ID is rejected", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), Identity{Email: "nobody@example.com"})
		_, err := IdentityFromContext(ctx)
		assert.Error(t, err)
	})
}

func TestValidateToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		tokenString := signToken(t, Claims{
			Email: "editor@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-2",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}, testSecret)

		identity, err := ValidateToken(tokenString, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "user-2", identity.ID)
		assert.Equal(t, "editor@example.com", identity.Email)
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString := signToken(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-2",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}, testSecret)

		_, err := ValidateToken(tokenString, testSecret)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.AuthError))
	})

	t.Run("wrong secret", func(t *testing.T) {
		tokenString := signToken(t, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-2"},
		}, "some-other-secret")

		_, err := ValidateToken(tokenString, testSecret)
		assert.Error(t, err)
	})

	t.Run("token without a subject", func(t *testing.T) {
		tokenString := signToken(t, Claims{Email: "ghost@example.com"}, testSecret)

		_, err := ValidateToken(tokenString, testSecret)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ValidateToken("not-a-token", testSecret)
		assert.Error(t, err)
	})
}
