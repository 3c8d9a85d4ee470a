package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.MedicineMaster) error {
	return db.WithContext(ctx).Create(m).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.MedicineMaster, error) {
	var m domain.MedicineMaster
	err := db.WithContext(ctx).Where("canonical_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*domain.MedicineMaster, error) {
	var m domain.MedicineMaster
	err := withRowLock(db.WithContext(ctx)).Where("canonical_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// withRowLock applies SELECT ... FOR UPDATE where the dialect supports it.
// SQLite serializes writers on its own and rejects the clause.
func withRowLock(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.MedicineMaster, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.MedicineMaster
	err := db.WithContext(ctx).
		Where("canonical_id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]domain.MedicineMaster, error) {
	page = page.Normalize()
	stmt := db.WithContext(ctx).Model(&domain.MedicineMaster{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Manufacturer != "" {
		stmt = stmt.Where("LOWER(manufacturer_name) LIKE ?", "%"+strings.ToLower(filter.Manufacturer)+"%")
	}
	if filter.UpdatedSince != nil {
		stmt = stmt.Where("updated_at >= ?", *filter.UpdatedSince)
	}

	var items []domain.MedicineMaster
	err := stmt.
		Order("canonical_id asc").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.MedicineMaster{}).Count(&count).Error
	return count, err
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, m *domain.MedicineMaster) error {
	return db.WithContext(ctx).Save(m).Error
}

func (r *repo) NextVersionNumber(ctx context.Context, db *gorm.DB, medicineID string) (int, error) {
	var next int
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM medicine_versions WHERE medicine_id = ?`,
		medicineID,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repo) InsertVersion(ctx context.Context, db *gorm.DB, v *domain.MedicineVersion) error {
	return db.WithContext(ctx).Create(v).Error
}

func (r *repo) FindVersion(ctx context.Context, db *gorm.DB, medicineID string, number int) (*domain.MedicineVersion, error) {
	var v domain.MedicineVersion
	err := db.WithContext(ctx).
		Where("medicine_id = ? AND version_number = ?", medicineID, number).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repo) ListVersions(ctx context.Context, db *gorm.DB, medicineID string) ([]domain.MedicineVersion, error) {
	var versions []domain.MedicineVersion
	err := db.WithContext(ctx).
		Where("medicine_id = ?", medicineID).
		Order("version_number asc").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *repo) FindByBarcode(ctx context.Context, db *gorm.DB, code string) (*domain.MedicineMaster, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	var m domain.MedicineMaster
	// Alternate barcodes live in a JSON array column; the quoted-membership
	// LIKE works identically on all three supported dialects.
	err := db.WithContext(ctx).
		Where("primary_barcode = ? OR alternate_barcodes LIKE ?", code, `%"`+code+`"%`).
		Order("canonical_id asc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) FindByManufacturerToken(ctx context.Context, db *gorm.DB, token string) ([]domain.MedicineMaster, error) {
	var items []domain.MedicineMaster
	err := db.WithContext(ctx).
		Where("LOWER(manufacturer_name) LIKE ?", "%"+strings.ToLower(strings.TrimSpace(token))+"%").
		Order("canonical_id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
