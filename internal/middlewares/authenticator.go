package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rentdesk/rentdesk/internal/cache"
	"github.com/rentdesk/rentdesk/internal/configuration"
	"github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

type AuthExcludedKey struct{}

// Authenticate resolves the session token from the session cookie or the
// Authorization header. Public routes still receive the claims when a valid
// session is presented, so that logout can revoke it.
func Authenticate(jwtSecret string, sessions cache.ICache) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			excluded := isExcluded(r.URL.Path, r.Method)
			ctx := r.Context()
			if excluded {
				ctx = context.WithValue(ctx, AuthExcludedKey{}, true)
			}

			token := sessionToken(r)
			if token == "" {
				if excluded {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				helpers.RespondWithError(w, http.StatusUnauthorized, []string{"UNAUTHORIZED"})
				return
			}

			userClaims, err := helpers.ParseSessionToken(jwtSecret, token)
			if err == nil && userClaims.ID != "" {
				revoked, revokedErr := sessions.IsSessionRevoked(userClaims.ID)
				if revokedErr != nil {
					GetLogger(r).Error("Failed to check session revocation", zap.Error(revokedErr))
					helpers.RespondWithError(w, http.StatusServiceUnavailable, []string{"SERVICE_UNAVAILABLE"})
					return
				}
				if revoked {
					err = errRevoked
				}
			}

			if err != nil {
				if excluded {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				helpers.RespondWithError(w, http.StatusUnauthorized, []string{"UNAUTHORIZED"})
				return
			}

			ctx = context.WithValue(ctx, models.UserClaimKey{}, userClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}

var errRevoked = errors.New("session revoked")

// sessionToken prefers the cookie and falls back to a bearer header.
func sessionToken(r *http.Request) string {
	if token := helpers.CookieValue(r, configuration.SessionCookieName); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func isExcluded(path, method string) bool {
	if exactRules, exists := configuration.AuthRuleExactMatchPath[path]; exists {
		for _, rule := range exactRules {
			if rule.Method == "*" || rule.Method == method {
				return !rule.RequireAuth
			}
		}
	}

	for _, rule := range configuration.AuthRulePrefixMatchPath {
		if strings.HasPrefix(path, rule.Path) && (rule.Method == "*" || rule.Method == method) {
			return !rule.RequireAuth
		}
	}

	return false
}
