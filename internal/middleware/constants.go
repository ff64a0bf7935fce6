// File: internal/middleware/constants.go
package middleware

import "context"

// Context keys for middleware communication
type contextKey string

const (
	SessionKeyKey contextKey = "session_key"
	RequestIDKey  contextKey = "request_id"
)

const (
	authCookieName   = "auth_token"
	sessionKeyHeader = "X-Session-Key"
	requestIDHeader  = "X-Request-ID"
)

// SessionKeyFrom returns the session key set by the auth middleware.
func SessionKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(SessionKeyKey).(string)
	return key, ok && key != ""
}

// WithSessionKey stores key the way the auth middleware does.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, SessionKeyKey, key)
}

func contextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// Logger defines the logging interface used by the middleware
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
