package domain

import (
	"context"
	"errors"

	"github.com/medikart/masterdata/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

var (
	ErrOverlayNotFound = errors.New("store_overlay_not_found")
	ErrStoreRequired   = errors.New("store_id_required")
	ErrInvalidStock    = errors.New("invalid_stock_quantity")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidDiscount = errors.New("invalid_discount")
	ErrInvalidGstRate  = errors.New("invalid_gst_rate")
)

// SetRequest upserts a store's overlay. Nil fields on a fresh overlay
// stay at their defaults; on an existing overlay they are left unchanged.
type SetRequest struct {
	CanonicalID    string           `json:"canonical_id"`
	CustomName     *string          `json:"custom_name,omitempty"`
	CustomMrp      *decimal.Decimal `json:"custom_mrp,omitempty"`
	CustomDiscount *decimal.Decimal `json:"custom_discount,omitempty"`
	CustomGstRate  *decimal.Decimal `json:"custom_gst_rate,omitempty"`
	StockQuantity  *int             `json:"stock_quantity,omitempty"`
	MinStockLevel  *int             `json:"min_stock_level,omitempty"`
	RackLocation   *string          `json:"rack_location,omitempty"`
	InternalQrCode *string          `json:"internal_qr_code,omitempty"`
	CustomNotes    *string          `json:"custom_notes,omitempty"`
	IsAvailable    *bool            `json:"is_available,omitempty"`
}

type Service interface {
	Set(ctx context.Context, storeID string, req SetRequest) (*StoreOverlay, error)
	Get(ctx context.Context, storeID, canonicalID string) (*StoreOverlay, error)
	Remove(ctx context.Context, storeID, canonicalID string) error

	GetMerged(ctx context.Context, storeID, canonicalID string) (*MergedView, error)
	BulkMerged(ctx context.Context, storeID string, canonicalIDs []string) ([]MergedView, error)

	IncrementStock(ctx context.Context, storeID, canonicalID string, qty int) (*StoreOverlay, error)
	DecrementStock(ctx context.Context, storeID, canonicalID string, qty int) (*StoreOverlay, error)
	LowStock(ctx context.Context, storeID string, page pagination.Page) ([]StoreOverlay, error)
}
