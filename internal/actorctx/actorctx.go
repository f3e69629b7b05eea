package actorctx

import (
	"context"

	"github.com/geocoder89/authhub/internal/auth"
)

type ctxKey string

const (
	keyIdentity  ctxKey = "identity"
	keyRequestID ctxKey = "request_id"
)

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, keyIdentity, id)
}

func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	v, ok := ctx.Value(keyIdentity).(auth.Identity)

	return v, ok && v.UserID != ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(keyRequestID).(string)
	return v
}
