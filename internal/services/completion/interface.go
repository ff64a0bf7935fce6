// File: internal/services/completion/interface.go
package completion

import (
	"context"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// Request is one exchange with the completion endpoint. Model is used by
// providers that pick a model per thread and is not part of the JSON body.
type Request struct {
	Message string           `json:"message"`
	History []domain.Message `json:"history"`
	Model   domain.Model     `json:"-"`
}

// Client issues a single completion request and returns the reply message.
type Client interface {
	Complete(ctx context.Context, req Request) (domain.Message, error)
}

// Logger defines the logging interface used by completion clients
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
