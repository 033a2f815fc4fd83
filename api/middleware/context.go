package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// ActorFromContext returns the caller seeded by Actor. Handlers behind Actor
// can rely on ok being true.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	return auth.FromContext(ctx)
}

// WithActor injects an actor; used by tests that bypass the header middleware.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return auth.WithActor(ctx, actor)
}

// RequireActor returns the caller or an Unauthorized error.
func RequireActor(r *http.Request) (auth.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}
	return actor, nil
}
