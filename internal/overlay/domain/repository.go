package domain

import (
	"context"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, o *StoreOverlay) error
	Find(ctx context.Context, db *gorm.DB, storeID, canonicalID string) (*StoreOverlay, error)
	// FindForUpdate locks the overlay row for the surrounding transaction,
	// serializing stock adjustments per store and record.
	FindForUpdate(ctx context.Context, db *gorm.DB, storeID, canonicalID string) (*StoreOverlay, error)
	FindByStoreAndIDs(ctx context.Context, db *gorm.DB, storeID string, canonicalIDs []string) ([]StoreOverlay, error)
	Save(ctx context.Context, db *gorm.DB, o *StoreOverlay) error
	Delete(ctx context.Context, db *gorm.DB, storeID, canonicalID string) (int64, error)
	ListLowStock(ctx context.Context, db *gorm.DB, storeID string, page pagination.Page) ([]StoreOverlay, error)
}
