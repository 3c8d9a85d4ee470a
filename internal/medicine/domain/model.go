package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPendingReview Status = "PENDING_REVIEW"
	StatusVerified      Status = "VERIFIED"
	StatusDiscontinued  Status = "DISCONTINUED"
)

const (
	ChangeCreated      = "CREATED"
	ChangeUpdated      = "UPDATED"
	ChangePromoted     = "PROMOTED"
	ChangeDiscontinued = "DISCONTINUED"
)

// RollbackChangeType tags a rollback version with its target version.
func RollbackChangeType(version int) string {
	return fmt.Sprintf("ROLLBACK_TO_V%d", version)
}

// MedicineMaster is the canonical deduplicated record of a pharmaceutical
// product. CanonicalID is content-derived at creation time and never
// recomputed; rows are never physically deleted.
type MedicineMaster struct {
	CanonicalID          string                      `json:"canonical_id" gorm:"primaryKey;column:canonical_id"`
	Name                 string                      `json:"name" gorm:"type:text;not null;index"`
	GenericName          *string                     `json:"generic_name,omitempty" gorm:"type:text"`
	CompositionText      string                      `json:"composition_text" gorm:"type:text;not null"`
	ManufacturerName     string                      `json:"manufacturer_name" gorm:"type:text;not null;index"`
	Form                 string                      `json:"form" gorm:"type:text;not null"`
	PackSize             string                      `json:"pack_size" gorm:"type:text;not null"`
	Schedule             *string                     `json:"schedule,omitempty" gorm:"type:text"`
	RequiresPrescription bool                        `json:"requires_prescription" gorm:"not null;default:false"`
	DefaultGstRate       decimal.Decimal             `json:"default_gst_rate" gorm:"type:numeric(5,2);not null"`
	HsnCode              *string                     `json:"hsn_code,omitempty" gorm:"type:text"`
	PrimaryBarcode       *string                     `json:"primary_barcode,omitempty" gorm:"type:text;index"`
	AlternateBarcodes    datatypes.JSONSlice[string] `json:"alternate_barcodes"`
	Status               Status                      `json:"status" gorm:"type:text;not null;default:PENDING;index"`
	ConfidenceScore      int                         `json:"confidence_score" gorm:"not null;default:50"`
	UsageCount           int64                       `json:"usage_count" gorm:"not null;default:0"`
	CreatedAt            time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time                   `json:"updated_at" gorm:"not null"`
}

func (MedicineMaster) TableName() string { return "medicine_masters" }

// MedicineVersion is one append-only history row. (MedicineID,
// VersionNumber) is unique; numbers are gapless and strictly increasing
// per record, including across rollbacks.
type MedicineVersion struct {
	ID            int64          `json:"id" gorm:"primaryKey"`
	MedicineID    string         `json:"medicine_id" gorm:"column:medicine_id;not null;uniqueIndex:ux_medicine_version,priority:1"`
	VersionNumber int            `json:"version_number" gorm:"not null;uniqueIndex:ux_medicine_version,priority:2"`
	SnapshotData  datatypes.JSON `json:"snapshot_data" gorm:"not null"`
	ChangeType    string         `json:"change_type" gorm:"type:text;not null"`
	ChangedBy     *string        `json:"changed_by,omitempty" gorm:"type:text"`
	ChangedAt     time.Time      `json:"changed_at" gorm:"not null"`
}

func (MedicineVersion) TableName() string { return "medicine_versions" }

// SnapshotSchemaVersion tags snapshots so future field additions do not
// corrupt rollbacks of history written before the addition.
const SnapshotSchemaVersion = 1

// Snapshot is the typed full-record snapshot stored on every version row.
type Snapshot struct {
	SchemaVersion        int             `json:"schema_version"`
	Name                 string          `json:"name"`
	GenericName          *string         `json:"generic_name,omitempty"`
	CompositionText      string          `json:"composition_text"`
	ManufacturerName     string          `json:"manufacturer_name"`
	Form                 string          `json:"form"`
	PackSize             string          `json:"pack_size"`
	Schedule             *string         `json:"schedule,omitempty"`
	RequiresPrescription bool            `json:"requires_prescription"`
	DefaultGstRate       decimal.Decimal `json:"default_gst_rate"`
	HsnCode              *string         `json:"hsn_code,omitempty"`
	PrimaryBarcode       *string         `json:"primary_barcode,omitempty"`
	AlternateBarcodes    []string        `json:"alternate_barcodes"`
	Status               Status          `json:"status"`
	ConfidenceScore      int             `json:"confidence_score"`
	UsageCount           int64           `json:"usage_count"`
}

// NewSnapshot captures every mutable field of the record.
func NewSnapshot(m *MedicineMaster) Snapshot {
	return Snapshot{
		SchemaVersion:        SnapshotSchemaVersion,
		Name:                 m.Name,
		GenericName:          m.GenericName,
		CompositionText:      m.CompositionText,
		ManufacturerName:     m.ManufacturerName,
		Form:                 m.Form,
		PackSize:             m.PackSize,
		Schedule:             m.Schedule,
		RequiresPrescription: m.RequiresPrescription,
		DefaultGstRate:       m.DefaultGstRate,
		HsnCode:              m.HsnCode,
		PrimaryBarcode:       m.PrimaryBarcode,
		AlternateBarcodes:    append([]string(nil), m.AlternateBarcodes...),
		Status:               m.Status,
		ConfidenceScore:      m.ConfidenceScore,
		UsageCount:           m.UsageCount,
	}
}

// Encode serializes the snapshot for the version row.
func (s Snapshot) Encode() (datatypes.JSON, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeSnapshot restores a snapshot from a version row.
func DecodeSnapshot(raw datatypes.JSON) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Apply restores the snapshot's mutable fields onto the record. The
// canonical ID and timestamps are left untouched.
func (s Snapshot) Apply(m *MedicineMaster) {
	m.Name = s.Name
	m.GenericName = s.GenericName
	m.CompositionText = s.CompositionText
	m.ManufacturerName = s.ManufacturerName
	m.Form = s.Form
	m.PackSize = s.PackSize
	m.Schedule = s.Schedule
	m.RequiresPrescription = s.RequiresPrescription
	m.DefaultGstRate = s.DefaultGstRate
	m.HsnCode = s.HsnCode
	m.PrimaryBarcode = s.PrimaryBarcode
	m.AlternateBarcodes = datatypes.NewJSONSlice(append([]string(nil), s.AlternateBarcodes...))
	m.Status = s.Status
	m.ConfidenceScore = s.ConfidenceScore
	m.UsageCount = s.UsageCount
}
