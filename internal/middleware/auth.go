// File: internal/middleware/auth.go
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyunix/go-chatsync/internal/auth"
)

// NewSessionAuth resolves the session key of a request. A bearer token or
// the auth_token cookie is validated with secret. When allowHeader is set,
// a plain X-Session-Key header is accepted as well.
func NewSessionAuth(secret []byte, allowHeader bool, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" && len(secret) > 0 {
				key, err := auth.ValidateToken(token, secret)
				if err != nil {
					logger.Warn("invalid session token", "path", r.URL.Path, "error", err)
					writeUnauthorized(w, "invalid token")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithSessionKey(r.Context(), key)))
				return
			}

			if allowHeader {
				if key := strings.TrimSpace(r.Header.Get(sessionKeyHeader)); key != "" {
					next.ServeHTTP(w, r.WithContext(WithSessionKey(r.Context(), key)))
					return
				}
			}

			logger.Debug("request without session credentials", "path", r.URL.Path)
			writeUnauthorized(w, "session credentials required")
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(authCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
