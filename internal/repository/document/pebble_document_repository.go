package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

type pebbleDocumentRepository struct {
	db         *pebble.DB
	collection string
	logger     Logger
}

// NewPebbleRepository opens (or creates) an embedded pebble store at path.
func NewPebbleRepository(path, collection string, logger Logger) (Repository, error) {
	if path == "" {
		return nil, errors.New("pebble path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &pebbleDocumentRepository{db: db, collection: collection, logger: logger}, nil
}

func (r *pebbleDocumentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey, err := scopedKey(r.collection, key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, closer, err := r.db.Get([]byte(fullKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		r.logger.Error("pebble document read failed", "key", fullKey, "error", err)
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	// v is only valid until closer is closed
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (r *pebbleDocumentRepository) Set(ctx context.Context, key string, value []byte) error {
	fullKey, err := scopedKey(r.collection, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.db.Set([]byte(fullKey), value, pebble.Sync); err != nil {
		r.logger.Error("pebble document write failed", "key", fullKey, "error", err)
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (r *pebbleDocumentRepository) Close() error {
	return r.db.Close()
}
