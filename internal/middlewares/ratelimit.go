package middlewares

import (
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rentdesk/rentdesk/internal/cache"
	h "github.com/rentdesk/rentdesk/internal/helpers"
	"github.com/rentdesk/rentdesk/internal/models"

	"go.uber.org/zap"
)

// RateLimit applies a per-minute request budget keyed by user id when
// authenticated, by client address otherwise. Cache failures let requests through.
func RateLimit(c cache.ICache, requestsPerMinute int, trustedProxies []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := "ip:" + clientIP(r, trustedProxies)
			if claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims); ok {
				identifier = "user:" + strconv.FormatUint(uint64(claims.UserID), 10)
			}

			retryAfter, err := c.GetRateLimit(identifier, requestsPerMinute)
			if err != nil {
				GetLogger(r).Warn("Rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				h.RespondWithError(w, http.StatusTooManyRequests, []string{"TOO_MANY_REQUESTS"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts X-Forwarded-For only when the direct peer is a known proxy.
func clientIP(r *http.Request, trustedProxies []string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if !slices.Contains(trustedProxies, host) {
		return host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return host
	}

	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !slices.Contains(trustedProxies, hop) {
			return hop
		}
	}
	return host
}
