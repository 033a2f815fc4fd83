package middleware

import (
	"net/http"

	"github.com/angelmondragon/packdrop-backend/api/responses"
	"github.com/angelmondragon/packdrop-backend/pkg/auth"
	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// Identity headers set by the gateway after it authenticates the caller.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

// Actor reads the gateway identity headers and seeds the request context with
// the caller. Requests without a valid identity are rejected with 401.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := auth.NewActor(r.Header.Get(HeaderUserID), r.Header.Get(HeaderRole))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := auth.WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor.UserID.String(), string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
