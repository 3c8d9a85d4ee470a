package storecontext

import (
	"context"
	"strings"
)

// StoreKey is the request context key for the calling store ID.
type StoreKey struct{}

// ActorKey is the request context key for the acting user.
type ActorKey struct{}

// Actor identifies who performs a mutation. Authentication is external;
// the HTTP layer only copies the already-verified identity headers here.
type Actor struct {
	ID   string
	Role string
}

// WithStoreID stores the store ID in the context.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, StoreKey{}, strings.TrimSpace(storeID))
}

// StoreIDFromContext returns the store ID from context, if set.
func StoreIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(StoreKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithActor stores the acting user in the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	actor.ID = strings.TrimSpace(actor.ID)
	actor.Role = strings.ToUpper(strings.TrimSpace(actor.Role))
	return context.WithValue(ctx, ActorKey{}, actor)
}

// ActorFromContext returns the acting user from context. Callers that do
// not set an actor are treated as the anonymous store session.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return Actor{}
	}
	actor, _ := ctx.Value(ActorKey{}).(Actor)
	return actor
}
