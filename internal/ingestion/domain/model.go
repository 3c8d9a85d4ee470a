package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Source is the channel a submission arrived through.
type Source string

const (
	SourceScan      Source = "SCAN"
	SourceManual    Source = "MANUAL"
	SourceCSVImport Source = "CSV_IMPORT"
	SourceAPI       Source = "API"
	SourceSystem    Source = "SYSTEM"
)

// PendingStatus is the review state of a submission.
type PendingStatus string

const (
	PendingStatusPending           PendingStatus = "PENDING"
	PendingStatusApproved          PendingStatus = "APPROVED"
	PendingStatusRejected          PendingStatus = "REJECTED"
	PendingStatusDuplicateResolved PendingStatus = "DUPLICATE_RESOLVED"
)

// Promotion thresholds: a record is promoted to VERIFIED once its
// confidence and its adoption across distinct stores both clear the bar.
const (
	PromoteConfidence = 80
	PromoteStores     = 3
)

// PendingMedicine is one store submission and its review trail. The
// canonical record it created or resolved to is linked from the start, so
// the catalog is usable before any review happens.
type PendingMedicine struct {
	ID                   int64                       `json:"id" gorm:"primaryKey"`
	Name                 string                      `json:"name" gorm:"type:text;not null"`
	GenericName          *string                     `json:"generic_name,omitempty" gorm:"type:text"`
	CompositionText      string                      `json:"composition_text" gorm:"type:text;not null"`
	ManufacturerName     string                      `json:"manufacturer_name" gorm:"type:text;not null"`
	Form                 string                      `json:"form" gorm:"type:text;not null"`
	PackSize             string                      `json:"pack_size" gorm:"type:text;not null"`
	Schedule             *string                     `json:"schedule,omitempty" gorm:"type:text"`
	RequiresPrescription bool                        `json:"requires_prescription" gorm:"not null;default:false"`
	HsnCode              *string                     `json:"hsn_code,omitempty" gorm:"type:text"`
	PrimaryBarcode       *string                     `json:"primary_barcode,omitempty" gorm:"type:text"`
	Source               Source                      `json:"source" gorm:"type:text;not null"`
	Status               PendingStatus               `json:"status" gorm:"type:text;not null;default:PENDING;index"`
	ConfidenceScore      int                         `json:"confidence_score" gorm:"not null;default:0"`
	CanonicalID          *string                     `json:"canonical_id,omitempty" gorm:"column:canonical_id;type:text;index"`
	SubmittedBy          string                      `json:"submitted_by" gorm:"type:text;not null"`
	UsedByStoreIDs       datatypes.JSONSlice[string] `json:"used_by_store_ids" gorm:"column:used_by_store_ids"`
	UsageCount           int64                       `json:"usage_count" gorm:"not null;default:0"`
	RejectionReason      *string                     `json:"rejection_reason,omitempty" gorm:"type:text"`
	CreatedAt            time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time                   `json:"updated_at" gorm:"not null"`
}

func (PendingMedicine) TableName() string { return "pending_medicines" }

// DistinctStores counts the stores that have used this submission.
func (p *PendingMedicine) DistinctStores() int {
	return len(p.UsedByStoreIDs)
}

// AddStore records a store's usage, keeping the set deduplicated.
func (p *PendingMedicine) AddStore(storeID string) {
	for _, id := range p.UsedByStoreIDs {
		if id == storeID {
			return
		}
	}
	p.UsedByStoreIDs = append(p.UsedByStoreIDs, storeID)
}
