package domain

import (
	"context"
	"time"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status       Status
	Manufacturer string
	UpdatedSince *time.Time
}

// Repository methods take the database handle explicitly so services can
// pass either the root handle or an open transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, m *MedicineMaster) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*MedicineMaster, error)
	// FindByIDForUpdate locks the master row for the duration of the
	// surrounding transaction, serializing version allocation per record.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*MedicineMaster, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]MedicineMaster, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]MedicineMaster, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	Save(ctx context.Context, db *gorm.DB, m *MedicineMaster) error

	NextVersionNumber(ctx context.Context, db *gorm.DB, medicineID string) (int, error)
	InsertVersion(ctx context.Context, db *gorm.DB, v *MedicineVersion) error
	FindVersion(ctx context.Context, db *gorm.DB, medicineID string, number int) (*MedicineVersion, error)
	ListVersions(ctx context.Context, db *gorm.DB, medicineID string) ([]MedicineVersion, error)

	FindByBarcode(ctx context.Context, db *gorm.DB, code string) (*MedicineMaster, error)
	FindByManufacturerToken(ctx context.Context, db *gorm.DB, token string) ([]MedicineMaster, error)
}

// SyncOp is the kind of search-index work queued by a mutation.
type SyncOp string

const (
	SyncUpsert SyncOp = "UPSERT"
	SyncDelete SyncOp = "DELETE"
)

// SyncEnqueuer records search-index work inside the mutation transaction.
// The index write itself happens out of band and never fails the mutation.
type SyncEnqueuer interface {
	Enqueue(ctx context.Context, tx *gorm.DB, op SyncOp, canonicalID string) error
}

// MutationGuard is the governance hook consulted before mutating a record.
type MutationGuard interface {
	CanMutate(status Status, actorID, actorRole string) bool
}
