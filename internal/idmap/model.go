// Package idmap migrates legacy catalog identifiers onto canonical IDs
// and answers lookups by old ID during the transition.
package idmap

import (
	"errors"
	"time"

	ingdomain "github.com/medikart/masterdata/internal/ingestion/domain"
)

var (
	ErrMappingNotFound = errors.New("id_mapping_not_found")
	ErrInvalidOldID    = errors.New("invalid_old_id")
)

// IdMapping links one legacy identifier to a canonical record. Old IDs
// are matched case-sensitively: legacy systems routinely issued "ABC123"
// and "abc123" as different products.
type IdMapping struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	OldID       string    `json:"old_id" gorm:"column:old_id;type:text;not null;uniqueIndex"`
	CanonicalID string    `json:"canonical_id" gorm:"column:canonical_id;type:text;not null;index"`
	System      string    `json:"system,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null"`
}

func (IdMapping) TableName() string { return "id_mappings" }

// ImportItem is one legacy record in a batch migration.
type ImportItem struct {
	OldID  string                  `json:"old_id"`
	System string                  `json:"system,omitempty"`
	Record ingdomain.IngestRequest `json:"record"`
}

// ImportResult aggregates a batch migration. Every item lands in exactly
// one bucket.
type ImportResult struct {
	Created int               `json:"created"`
	Matched int               `json:"matched"`
	Failed  int               `json:"failed"`
	Errors  []ImportError     `json:"errors,omitempty"`
	Mapping map[string]string `json:"mapping"`
}

type ImportError struct {
	OldID   string `json:"old_id"`
	Message string `json:"message"`
}

// MaxImportErrorSample bounds the error detail carried back from batches.
const MaxImportErrorSample = 20

func (r *ImportResult) recordError(oldID string, err error) {
	r.Failed++
	if len(r.Errors) < MaxImportErrorSample {
		r.Errors = append(r.Errors, ImportError{OldID: oldID, Message: err.Error()})
	}
}
