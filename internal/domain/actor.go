package domain

import (
	"context"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
)

type actorKey struct{}

// WithActor adjunta la identidad autenticada (incluida su credencial) al contexto.
func WithActor(ctx context.Context, a entity.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom devuelve el actor adjuntado con WithActor.
func ActorFrom(ctx context.Context) (entity.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(entity.Actor)
	return a, ok
}
