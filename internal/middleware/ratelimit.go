// File: internal/middleware/ratelimit.go
package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/iyunix/go-chatsync/internal/ratelimit"
)

// NewRateLimitMiddleware limits requests per session key, or per client IP
// when the request carries none.
func NewRateLimitMiddleware(limiter *ratelimit.KeyedLimiter, name string, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier, ok := SessionKeyFrom(r.Context())
			if !ok {
				identifier = "ip:" + ratelimit.GetClientIP(r)
			}

			info := limiter.Allow(identifier)
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))

			if !info.Allowed {
				retry := int(math.Ceil(info.RetryAfter.Seconds()))
				logger.Warn("rate limited", "limiter", name, "identifier", identifier, "retry_after", retry)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Too many requests. Please try again later.",
					"retryAfter": retry,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
