package grpcserver

import (
	"context"

	"github.com/and161185/forever-vivid/internal/model"
)

type ctxKey string

const identityKey ctxKey = "vivid.identity"

// WithIdentity stores an authenticated caller in context.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx fetches the caller stored by WithIdentity.
func IdentityFromCtx(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	if !ok || id.UID == "" {
		return model.Identity{}, false
	}
	return id, true
}
