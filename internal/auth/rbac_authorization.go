package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asset-attestation/internal"
	coreUser "github.com/frahmantamala/asset-attestation/internal/core/user"
	"github.com/frahmantamala/asset-attestation/internal/transport"
)

type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

// RequireRole lets the request through when the current user has one of the roles.
func (ra *RBACAuthorization) RequireRole(roles ...coreUser.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok || user == nil {
				ra.Logger.Warn("authorization check failed: user not found in context")
				ra.HandleServiceError(w, ErrInvalidToken)
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			ra.Logger.WarnContext(r.Context(), "access denied: insufficient role",
				"user_id", user.ID,
				"role", user.Role,
				"required_roles", roles)
			ra.HandleServiceError(w, internal.ErrUnauthorizedAccess)
		})
	}
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(coreUser.RoleAdmin)
}

// RequireAssetManager admits roles that may create and edit any asset.
func (ra *RBACAuthorization) RequireAssetManager() func(http.Handler) http.Handler {
	return ra.RequireRole(coreUser.RoleAdmin, coreUser.RoleCoordinator)
}
