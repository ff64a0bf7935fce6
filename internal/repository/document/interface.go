// File: internal/repository/document/interface.go
package document

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by Get when no value exists under the key.
var ErrDocumentNotFound = errors.New("document not found")

// Repository reads and writes one opaque value per key. Writes are
// unconditional: the last Set for a key wins.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Logger defines the logging interface used by the document backends
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
