// File: internal/domain/document.go
package domain

import "time"

// Document is one keyed JSON value in the relational document backend.
type Document struct {
	Key       string `gorm:"column:doc_key;primaryKey;size:255"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName keeps the table name stable regardless of naming strategy.
func (Document) TableName() string {
	return "documents"
}
