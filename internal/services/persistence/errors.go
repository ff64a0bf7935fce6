// File: internal/services/persistence/errors.go
package persistence

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeBackend ErrorType = "BACKEND"
	ErrTypeEncode  ErrorType = "ENCODE"
	ErrTypeDecode  ErrorType = "DECODE"
)

// StoreError describes a failed load or save. It is logged by the caller and
// never ends the session.
type StoreError struct {
	Type      ErrorType
	Operation string
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("document %s error in %s for key %q: %v", e.Type, e.Operation, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

func newStoreError(typ ErrorType, operation, key string, cause error) *StoreError {
	return &StoreError{Type: typ, Operation: operation, Key: key, Cause: cause}
}

// IsReadFailure reports whether err means a stored document exists but could
// not be read or decoded. A missing document whose seed write failed is not
// a read failure: nothing stored can be lost by writing over it.
func IsReadFailure(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Operation == "load"
}
