// File: internal/services/chat/errors.go
package chat

import "fmt"

type ErrorType string

const (
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeClosed     ErrorType = "CLOSED"
	ErrTypeShutdown   ErrorType = "SHUTDOWN"
)

type ChatError struct {
	Type       ErrorType
	Operation  string
	Message    string
	SessionKey string
	Cause      error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewClosedError(operation, key string) *ChatError {
	return &ChatError{
		Type:       ErrTypeClosed,
		Operation:  operation,
		Message:    "session manager is closed",
		SessionKey: key,
	}
}

func NewShutdownError(key string, cause error) *ChatError {
	return &ChatError{
		Type:       ErrTypeShutdown,
		Operation:  "close",
		Message:    "session did not shut down cleanly",
		SessionKey: key,
		Cause:      cause,
	}
}
