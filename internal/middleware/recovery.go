// File: internal/middleware/recovery.go
package middleware

import (
	"net/http"
	"runtime/debug"
)

// NewRecoverPanic turns a panicking handler into a 500 response.
func NewRecoverPanic(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					reqID, _ := r.Context().Value(RequestIDKey).(string)
					logger.Error("panic in handler",
						"error", err,
						"path", r.URL.Path,
						"request_id", reqID,
						"stack", string(debug.Stack()),
					)

					w.Header().Set("Connection", "close")
					http.Error(w, "Something went wrong on our end.", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
