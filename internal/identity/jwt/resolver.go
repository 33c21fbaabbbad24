package jwt

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cinewatch/server/internal/identity"
)

type resolver struct {
	secret []byte
}

func NewResolver(secret string) *resolver {
	return &resolver{secret: []byte(secret)}
}

func (r resolver) Resolve(_ context.Context, credential string) (identity.Identity, error) {
	token, err := jwt.Parse(credential, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return r.secret, nil
	})
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", identity.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return identity.Identity{}, identity.ErrUnauthenticated
	}

	// tokens issued by different auth versions carry the id under different keys
	id := stringClaim(claims, "id")
	if id == "" {
		id = stringClaim(claims, "_id")
	}
	if id == "" {
		id = stringClaim(claims, "user_id")
	}
	if id == "" {
		return identity.Identity{}, fmt.Errorf("%w: token carries no user id", identity.ErrUnauthenticated)
	}

	return identity.Identity{
		Id:          id,
		DisplayName: stringClaim(claims, "name"),
		Email:       stringClaim(claims, "email"),
		AvatarURL:   stringClaim(claims, "avatar"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	value, ok := claims[key].(string)
	if !ok {
		return ""
	}

	return value
}
