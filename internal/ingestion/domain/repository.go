package domain

import (
	"context"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status PendingStatus
	Source Source
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *PendingMedicine) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*PendingMedicine, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*PendingMedicine, error)
	FindByCanonicalID(ctx context.Context, db *gorm.DB, canonicalID string) (*PendingMedicine, error)
	Save(ctx context.Context, db *gorm.DB, p *PendingMedicine) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]PendingMedicine, error)
	CountByStatus(ctx context.Context, db *gorm.DB) (map[PendingStatus]int64, error)
	CountBySource(ctx context.Context, db *gorm.DB) (map[Source]int64, error)
}
