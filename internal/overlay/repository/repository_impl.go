package repository

import (
	"context"
	"errors"

	"github.com/medikart/masterdata/internal/overlay/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Upsert inserts the overlay or, when the store already has one for the
// record, updates it in place.
func (r *repo) Upsert(ctx context.Context, db *gorm.DB, o *domain.StoreOverlay) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "store_id"}, {Name: "canonical_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"custom_name", "custom_mrp", "custom_discount", "custom_gst_rate",
				"stock_quantity", "min_stock_level", "rack_location",
				"internal_qr_code", "custom_notes", "is_available",
				"updated_at",
			}),
		}).
		Create(o).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, storeID, canonicalID string) (*domain.StoreOverlay, error) {
	var o domain.StoreOverlay
	err := db.WithContext(ctx).
		Where("store_id = ? AND canonical_id = ?", storeID, canonicalID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, storeID, canonicalID string) (*domain.StoreOverlay, error) {
	var o domain.StoreOverlay
	err := withRowLock(db.WithContext(ctx)).
		Where("store_id = ? AND canonical_id = ?", storeID, canonicalID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func withRowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) FindByStoreAndIDs(ctx context.Context, db *gorm.DB, storeID string, canonicalIDs []string) ([]domain.StoreOverlay, error) {
	if len(canonicalIDs) == 0 {
		return nil, nil
	}
	var items []domain.StoreOverlay
	err := db.WithContext(ctx).
		Where("store_id = ? AND canonical_id IN ?", storeID, canonicalIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, o *domain.StoreOverlay) error {
	return db.WithContext(ctx).Save(o).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, storeID, canonicalID string) (int64, error) {
	result := db.WithContext(ctx).
		Where("store_id = ? AND canonical_id = ?", storeID, canonicalID).
		Delete(&domain.StoreOverlay{})
	return result.RowsAffected, result.Error
}

func (r *repo) ListLowStock(ctx context.Context, db *gorm.DB, storeID string, page pagination.Page) ([]domain.StoreOverlay, error) {
	page = page.Normalize()
	var items []domain.StoreOverlay
	err := db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Where("min_stock_level IS NOT NULL AND stock_quantity <= min_stock_level").
		Order("canonical_id asc").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
