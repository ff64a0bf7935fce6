package document

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

type redisDocumentRepository struct {
	rdb        goredis.UniversalClient
	collection string
	logger     Logger
}

// NewRedisRepository stores each document as a plain string value under
// "<collection>:<key>".
func NewRedisRepository(rdb goredis.UniversalClient, collection string, logger Logger) (Repository, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	return &redisDocumentRepository{rdb: rdb, collection: collection, logger: logger}, nil
}

func (r *redisDocumentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey, err := scopedKey(r.collection, key)
	if err != nil {
		return nil, err
	}
	raw, err := r.rdb.Get(ctx, fullKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		r.logger.Error("redis document read failed", "key", fullKey, "error", err)
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return raw, nil
}

func (r *redisDocumentRepository) Set(ctx context.Context, key string, value []byte) error {
	fullKey, err := scopedKey(r.collection, key)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, fullKey, value, 0).Err(); err != nil {
		r.logger.Error("redis document write failed", "key", fullKey, "error", err)
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *redisDocumentRepository) Close() error {
	return r.rdb.Close()
}
