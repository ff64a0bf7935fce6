// File: internal/services/completion/errors.go
package completion

import "fmt"

type ErrorType string

const (
	ErrTypeNetwork    ErrorType = "NETWORK"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeRateLimit  ErrorType = "RATE_LIMIT"
	ErrTypeDecode     ErrorType = "DECODE"
	ErrTypeValidation ErrorType = "VALIDATION"
)

// CompletionError describes a failed completion exchange. Code carries the
// HTTP status when the endpoint answered.
type CompletionError struct {
	Type    ErrorType
	Code    int
	Message string
	Cause   error
}

func (e *CompletionError) Error() string {
	if e.Code != 0 {
		if e.Cause != nil {
			return fmt.Sprintf("completion %s error (status %d): %s (caused by: %v)", e.Type, e.Code, e.Message, e.Cause)
		}
		return fmt.Sprintf("completion %s error (status %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("completion %s error: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("completion %s error: %s", e.Type, e.Message)
}

func (e *CompletionError) Unwrap() error {
	return e.Cause
}

func NewNetworkError(msg string, cause error) *CompletionError {
	return &CompletionError{Type: ErrTypeNetwork, Message: msg, Cause: cause}
}

func NewProviderError(code int, msg string, cause error) *CompletionError {
	return &CompletionError{Type: ErrTypeProvider, Code: code, Message: msg, Cause: cause}
}

func NewRateLimitError(msg string) *CompletionError {
	return &CompletionError{Type: ErrTypeRateLimit, Code: 429, Message: msg}
}

func NewDecodeError(msg string, cause error) *CompletionError {
	return &CompletionError{Type: ErrTypeDecode, Message: msg, Cause: cause}
}

func NewValidationError(msg string) *CompletionError {
	return &CompletionError{Type: ErrTypeValidation, Message: msg}
}
