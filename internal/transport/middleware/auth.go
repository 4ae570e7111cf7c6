package middleware

import (
	"net/http"

	"github.com/frahmantamala/asset-attestation/internal"
	"github.com/frahmantamala/asset-attestation/internal/auth"
	"github.com/frahmantamala/asset-attestation/pkg/logger"
)

// ActorContext records the authenticated user as the actor of the request, for
// audit entries and the request logger. It must run after the auth middleware.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		if !ok || user == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithActor(r.Context(), user.Email)
		ctx = logger.WithActor(ctx, user.Email, string(user.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
