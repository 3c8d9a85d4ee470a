package search

import (
	"context"
	"time"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

const (
	outboxPending = "PENDING"
	outboxDone    = "DONE"
)

// OutboxEntry is one unit of search-index work, written in the same
// transaction as the master mutation it mirrors. ULID keys give claim
// order without a sequence.
type OutboxEntry struct {
	ID          string     `gorm:"primaryKey"`
	CanonicalID string     `gorm:"not null;index"`
	Op          string     `gorm:"type:text;not null"`
	Status      string     `gorm:"type:text;not null;default:PENDING;index"`
	Attempts    int        `gorm:"not null;default:0"`
	LastError   *string    `gorm:"type:text"`
	LockedAt    *time.Time `gorm:"index"`
	LockedBy    *string    `gorm:"type:text"`
	CreatedAt   time.Time  `gorm:"not null"`
	ProcessedAt *time.Time
}

func (OutboxEntry) TableName() string { return "search_outbox" }

// Outbox implements meddomain.SyncEnqueuer.
type Outbox struct{}

func NewOutbox() *Outbox { return &Outbox{} }

func (o *Outbox) Enqueue(ctx context.Context, tx *gorm.DB, op meddomain.SyncOp, canonicalID string) error {
	entry := &OutboxEntry{
		ID:          ulid.Make().String(),
		CanonicalID: canonicalID,
		Op:          string(op),
		Status:      outboxPending,
		CreatedAt:   time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(entry).Error
}
