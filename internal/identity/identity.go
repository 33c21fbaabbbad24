package identity

import (
	"context"
	"errors"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is a resolved user: who a bearer credential belongs to.
type Identity struct {
	Id          string
	DisplayName string
	Email       string
	AvatarURL   string
}

// Name returns the display name, falling back to the email address.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}

	return i.Email
}

// Resolver turns a bearer credential into a stable identity. Implementations
// must return ErrUnauthenticated (possibly wrapped) for invalid or expired
// credentials.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Identity, error)
}
