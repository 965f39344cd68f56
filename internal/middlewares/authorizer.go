package middlewares

import (
	"net/http"

	h "github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"
)

// AuthorizeRole only lets through users holding exactly the required role. Admins
// pass every check.
func AuthorizeRole(requiredRole models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
			if !ok {
				h.RespondWithError(w, http.StatusUnauthorized, []string{"UNAUTHORIZED"})
				return
			}

			if userClaims.Role != models.RoleAdmin && userClaims.Role != requiredRole {
				h.RespondWithError(w, http.StatusForbidden, []string{"FORBIDDEN"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
