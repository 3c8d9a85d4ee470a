package domain

import (
	"context"
	"errors"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Name                 string           `json:"name"`
	GenericName          *string          `json:"generic_name,omitempty"`
	CompositionText      string           `json:"composition_text"`
	ManufacturerName     string           `json:"manufacturer_name"`
	Form                 string           `json:"form"`
	PackSize             string           `json:"pack_size"`
	Schedule             *string          `json:"schedule,omitempty"`
	RequiresPrescription bool             `json:"requires_prescription"`
	DefaultGstRate       *decimal.Decimal `json:"default_gst_rate,omitempty"`
	HsnCode              *string          `json:"hsn_code,omitempty"`
	PrimaryBarcode       *string          `json:"primary_barcode,omitempty"`
	AlternateBarcodes    []string         `json:"alternate_barcodes,omitempty"`
	ConfidenceScore      *int             `json:"confidence_score,omitempty"`
}

// UpdatePatch carries partial updates; nil fields are left unchanged.
type UpdatePatch struct {
	Name                 *string          `json:"name,omitempty"`
	GenericName          *string          `json:"generic_name,omitempty"`
	CompositionText      *string          `json:"composition_text,omitempty"`
	ManufacturerName     *string          `json:"manufacturer_name,omitempty"`
	Form                 *string          `json:"form,omitempty"`
	PackSize             *string          `json:"pack_size,omitempty"`
	Schedule             *string          `json:"schedule,omitempty"`
	RequiresPrescription *bool            `json:"requires_prescription,omitempty"`
	DefaultGstRate       *decimal.Decimal `json:"default_gst_rate,omitempty"`
	HsnCode              *string          `json:"hsn_code,omitempty"`
	PrimaryBarcode       *string          `json:"primary_barcode,omitempty"`
	AlternateBarcodes    []string         `json:"alternate_barcodes,omitempty"`
	Status               *Status          `json:"status,omitempty"`
	ConfidenceScore      *int             `json:"confidence_score,omitempty"`
}

type ListRequest struct {
	Status       string `form:"status"`
	Manufacturer string `form:"manufacturer"`
	pagination.Page
}

type BulkUpdateItem struct {
	CanonicalID string      `json:"canonical_id"`
	Patch       UpdatePatch `json:"patch"`
}

type ItemError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// BulkResult aggregates per-item outcomes; Errors is a bounded sample.
type BulkResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// MaxBulkErrorSample bounds the error detail carried back from batches.
const MaxBulkErrorSample = 20

func (r *BulkResult) RecordError(key string, err error) {
	r.Failed++
	if len(r.Errors) < MaxBulkErrorSample {
		r.Errors = append(r.Errors, ItemError{Key: key, Message: err.Error()})
	}
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*MedicineMaster, error)
	Get(ctx context.Context, id string) (*MedicineMaster, error)
	List(ctx context.Context, req ListRequest) ([]MedicineMaster, error)
	Update(ctx context.Context, id string, patch UpdatePatch) (*MedicineMaster, error)
	SoftDelete(ctx context.Context, id string) (*MedicineMaster, error)
	Rollback(ctx context.Context, id string, version int) (*MedicineMaster, error)
	History(ctx context.Context, id string) ([]MedicineVersion, error)
	BulkCreate(ctx context.Context, reqs []CreateRequest) (BulkResult, error)
	BulkUpdate(ctx context.Context, items []BulkUpdateItem) (BulkResult, error)
}

var (
	ErrNotFound            = errors.New("medicine_not_found")
	ErrConflict            = errors.New("medicine_conflict")
	ErrVersionNotFound     = errors.New("version_not_found")
	ErrPolicyDenied        = errors.New("verified_record_protected")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidComposition  = errors.New("invalid_composition")
	ErrInvalidManufacturer = errors.New("invalid_manufacturer")
	ErrInvalidForm         = errors.New("invalid_form")
	ErrInvalidPackSize     = errors.New("invalid_pack_size")
	ErrInvalidGstRate      = errors.New("invalid_gst_rate")
)
