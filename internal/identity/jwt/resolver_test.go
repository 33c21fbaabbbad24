package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/server/internal/identity"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestResolve(t *testing.T) {
	r := NewResolver("test-secret")
	ctx := context.Background()

	token := signToken(t, "test-secret", jwt.MapClaims{
		"id":     "u1",
		"name":   "Alice",
		"email":  "alice@example.com",
		"avatar": "https://cdn/a.png",
	})

	ident, err := r.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.Id)
	assert.Equal(t, "Alice", ident.DisplayName)
	assert.Equal(t, "alice@example.com", ident.Email)
	assert.Equal(t, "https://cdn/a.png", ident.AvatarURL)
}

func TestResolveIdFallbackKeys(t *testing.T) {
	r := NewResolver("test-secret")
	ctx := context.Background()

	for _, key := range []string{"id", "_id", "user_id"} {
		token := signToken(t, "test-secret", jwt.MapClaims{key: "u42"})
		ident, err := r.Resolve(ctx, token)
		require.NoError(t, err, key)
		assert.Equal(t, "u42", ident.Id, key)
	}
}

func TestResolveFailures(t *testing.T) {
	r := NewResolver("test-secret")
	ctx := context.Background()

	t.Run("garbage token", func(t *testing.T) {
		_, err := r.Resolve(ctx, "not-a-token")
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{"id": "u1"})
		_, err := r.Resolve(ctx, token)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, "test-secret", jwt.MapClaims{
			"id":  "u1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := r.Resolve(ctx, token)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})

	t.Run("missing id", func(t *testing.T) {
		token := signToken(t, "test-secret", jwt.MapClaims{"name": "Bob"})
		_, err := r.Resolve(ctx, token)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated)
	})
}

func TestName(t *testing.T) {
	assert.Equal(t, "Alice", identity.Identity{DisplayName: "Alice", Email: "a@b.c"}.Name())
	assert.Equal(t, "a@b.c", identity.Identity{Email: "a@b.c"}.Name())
}
