package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextActorKey ctxKey = "actorEmail"

// SystemActor is recorded as the actor for changes made by the scheduler or CLI.
const SystemActor = "system"

// ActorFromContext returns the email of the caller that triggered the current operation.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SystemActor
	}
	if email, ok := ctx.Value(ContextActorKey).(string); ok && email != "" {
		return email
	}
	return SystemActor
}

func ContextWithActor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ContextActorKey, email)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
