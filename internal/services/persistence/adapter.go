// File: internal/services/persistence/adapter.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/iyunix/go-chatsync/internal/repository/document"
)

// Adapter reads and writes one JSON value of type T per key. It knows
// nothing about what T means.
type Adapter[T any] struct {
	repo   document.Repository
	config *Config
	logger Logger
}

func NewAdapter[T any](repo document.Repository, config *Config, logger Logger) *Adapter[T] {
	if config == nil {
		config = DefaultConfig()
	}
	return &Adapter[T]{repo: repo, config: config, logger: logger}
}

// Load returns the stored value for key. When no document exists it is
// seeded with initial, which is then returned. On any failure initial is
// returned together with a *StoreError so the caller can continue in memory.
func (a *Adapter[T]) Load(ctx context.Context, key string, initial T) (T, error) {
	loadCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	raw, err := a.repo.Get(loadCtx, key)
	if errors.Is(err, document.ErrDocumentNotFound) {
		a.logger.Info("no stored document, seeding default", "key", key)
		if err := a.Save(ctx, key, initial); err != nil {
			return initial, err
		}
		return initial, nil
	}
	if err != nil {
		a.logger.Error("error fetching document", "key", key, "error", err)
		return initial, newStoreError(ErrTypeBackend, "load", key, err)
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		a.logger.Error("stored document is not valid JSON", "key", key, "error", err)
		return initial, newStoreError(ErrTypeDecode, "load", key, err)
	}
	return value, nil
}

// Save overwrites the document under key with value.
func (a *Adapter[T]) Save(ctx context.Context, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return newStoreError(ErrTypeEncode, "save", key, err)
	}

	saveCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if err := a.repo.Set(saveCtx, key, raw); err != nil {
		a.logger.Error("error saving document", "key", key, "error", err)
		return newStoreError(ErrTypeBackend, "save", key, err)
	}
	return nil
}
