package access

import (
	"context"

	"trendmart/internal/auth"
)

type contextKey string

const identityKey = contextKey("identity")

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}
