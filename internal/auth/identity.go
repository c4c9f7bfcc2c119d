package auth

import (
	"context"
	"strings"
)

// DefaultActor is recorded when no authenticated caller is known.
const DefaultActor = "admin"

type actorKey struct{}

// WithActor returns ctx carrying the acting user's name.
func WithActor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, actorKey{}, name)
}

// ContextIdentity resolves the actor from the request context.
type ContextIdentity struct {
	Fallback string
}

// CurrentActor returns the name set by WithActor, else the fallback.
func (i ContextIdentity) CurrentActor(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	if i.Fallback != "" {
		return i.Fallback
	}
	return DefaultActor
}

// StaticIdentity always reports the same actor.
type StaticIdentity string

// CurrentActor returns the static name.
func (s StaticIdentity) CurrentActor(context.Context) string {
	if s == "" {
		return DefaultActor
	}
	return string(s)
}
