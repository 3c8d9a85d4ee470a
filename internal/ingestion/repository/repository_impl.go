package repository

import (
	"context"
	"errors"

	"github.com/medikart/masterdata/internal/ingestion/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.PendingMedicine) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.PendingMedicine, error) {
	var p domain.PendingMedicine
	err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.PendingMedicine, error) {
	var p domain.PendingMedicine
	err := withRowLock(db.WithContext(ctx)).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func withRowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) FindByCanonicalID(ctx context.Context, db *gorm.DB, canonicalID string) (*domain.PendingMedicine, error) {
	var p domain.PendingMedicine
	err := db.WithContext(ctx).
		Where("canonical_id = ?", canonicalID).
		Order("id asc").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, p *domain.PendingMedicine) error {
	return db.WithContext(ctx).Save(p).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]domain.PendingMedicine, error) {
	page = page.Normalize()
	stmt := db.WithContext(ctx).Model(&domain.PendingMedicine{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Source != "" {
		stmt = stmt.Where("source = ?", filter.Source)
	}

	var items []domain.PendingMedicine
	err := stmt.
		Order("id asc").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.PendingStatus]int64, error) {
	var rows []struct {
		Status domain.PendingStatus
		Total  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.PendingMedicine{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.PendingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repo) CountBySource(ctx context.Context, db *gorm.DB) (map[domain.Source]int64, error) {
	var rows []struct {
		Source domain.Source
		Total  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.PendingMedicine{}).
		Select("source, COUNT(*) AS total").
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.Source]int64, len(rows))
	for _, row := range rows {
		counts[row.Source] = row.Total
	}
	return counts, nil
}
