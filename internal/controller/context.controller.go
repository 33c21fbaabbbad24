package controller

import (
	"context"

	"github.com/cinewatch/server/internal/identity"
)

type contextKey int

const identityCtxKey contextKey = iota

func (c controller) getIdentityFromCtx(ctx context.Context) identity.Identity {
	id, ok := ctx.Value(identityCtxKey).(identity.Identity)
	if !ok {
		return identity.Identity{}
	}

	return id
}
