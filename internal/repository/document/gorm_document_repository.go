// File: internal/repository/document/gorm_document_repository.go
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iyunix/go-chatsync/internal/domain"
)

const maxKeyLength = 255

type gormDocumentRepository struct {
	db         *gorm.DB
	collection string
	logger     Logger
}

// NewGormRepository stores documents in the "documents" table. The table is
// migrated on construction.
func NewGormRepository(db *gorm.DB, collection string, logger Logger) (Repository, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	if err := db.AutoMigrate(&domain.Document{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &gormDocumentRepository{db: db, collection: collection, logger: logger}, nil
}

func (r *gormDocumentRepository) Get(ctx context.Context, key string) ([]byte, error) {
	fullKey, err := scopedKey(r.collection, key)
	if err != nil {
		return nil, err
	}

	var doc domain.Document
	err = r.db.WithContext(ctx).Where("doc_key = ?", fullKey).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		// Keep document content out of the logs, the key is enough to debug.
		r.logger.Error("document read failed", "key", fullKey, "error", err)
		return nil, fmt.Errorf("database error reading document: %w", err)
	}
	return []byte(doc.Value), nil
}

func (r *gormDocumentRepository) Set(ctx context.Context, key string, value []byte) error {
	fullKey, err := scopedKey(r.collection, key)
	if err != nil {
		return err
	}

	doc := domain.Document{Key: fullKey, Value: string(value)}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		r.logger.Error("document write failed", "key", fullKey, "error", err)
		return fmt.Errorf("database error writing document: %w", err)
	}

	r.logger.Debug("document written", "key", fullKey, "bytes", len(value))
	return nil
}

func (r *gormDocumentRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// scopedKey validates key and prefixes it with the collection name.
func scopedKey(collection, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("document key is required")
	}
	full := key
	if collection != "" {
		full = collection + ":" + key
	}
	if len(full) > maxKeyLength {
		return "", fmt.Errorf("document key must be %d characters or less", maxKeyLength)
	}
	return full, nil
}
