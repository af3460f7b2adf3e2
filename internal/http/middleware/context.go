package middlewarex

import (
	"context"

	"krostyshop/internal/domain/user"
)

type ctxKey string

const (
	ctxActor ctxKey = "actor"
)

func WithActor(ctx context.Context, a user.Actor) context.Context {
	return context.WithValue(ctx, ctxActor, a)
}

// Actor returns the authenticated caller; ok is false for anonymous requests
func Actor(ctx context.Context) (user.Actor, bool) {
	v, ok := ctx.Value(ctxActor).(user.Actor)
	return v, ok
}
