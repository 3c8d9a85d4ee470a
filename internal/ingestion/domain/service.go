package domain

import (
	"context"
	"errors"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

var (
	ErrPendingNotFound = errors.New("pending_medicine_not_found")
	ErrStoreRequired   = errors.New("store_id_required")
	ErrInvalidSource   = errors.New("invalid_source")
	ErrAlreadyResolved = errors.New("pending_already_resolved")
)

// IngestRequest is one submission from a store.
type IngestRequest struct {
	Source               Source           `json:"source"`
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
	// MatchThreshold overrides the duplicate-match cutoff for this
	// submission; zero means the default.
	MatchThreshold int `json:"match_threshold,omitempty"`
}

// IngestResult reports how a submission was resolved. The canonical ID is
// always set and immediately usable, whether the record was created fresh
// or matched an existing one.
type IngestResult struct {
	CanonicalID        string `json:"canonical_id"`
	Created            bool   `json:"created"`
	MatchedExisting    bool   `json:"matched_existing"`
	InstantlyAvailable bool   `json:"instantly_available"`
	ConfidenceScore    int    `json:"confidence_score"`
	Promoted           bool   `json:"promoted"`
	PendingID          int64  `json:"pending_id"`
}

type PendingListRequest struct {
	Status string `form:"status"`
	Source string `form:"source"`
	pagination.Page
}

// Stats summarizes the ingestion pipeline.
type Stats struct {
	Total    int64                   `json:"total"`
	ByStatus map[PendingStatus]int64 `json:"by_status"`
	BySource map[Source]int64        `json:"by_source"`
}

type Service interface {
	Ingest(ctx context.Context, storeID string, req IngestRequest) (*IngestResult, error)
	BulkIngest(ctx context.Context, storeID string, reqs []IngestRequest) (meddomain.BulkResult, error)
	IncrementUsage(ctx context.Context, storeID, canonicalID string) (*meddomain.MedicineMaster, error)
	Promote(ctx context.Context, canonicalID string) (bool, error)
	ListPending(ctx context.Context, req PendingListRequest) ([]PendingMedicine, error)
	GetPending(ctx context.Context, id int64) (*PendingMedicine, error)
	Reject(ctx context.Context, id int64, reason string) (*PendingMedicine, error)
	Stats(ctx context.Context) (*Stats, error)
}
