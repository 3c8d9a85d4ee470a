package domain

import (
	"time"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/shopspring/decimal"
)

// StoreOverlay is one store's private layer over a canonical record:
// pricing, stock and placement. It never alters master data, and one
// store's overlay is invisible to every other store.
type StoreOverlay struct {
	ID             int64            `json:"id" gorm:"primaryKey"`
	StoreID        string           `json:"store_id" gorm:"column:store_id;type:text;not null;uniqueIndex:ux_store_medicine,priority:1"`
	CanonicalID    string           `json:"canonical_id" gorm:"column:canonical_id;type:text;not null;uniqueIndex:ux_store_medicine,priority:2;index"`
	CustomName     *string          `json:"custom_name,omitempty" gorm:"type:text"`
	CustomMrp      *decimal.Decimal `json:"custom_mrp,omitempty" gorm:"type:numeric(12,2)"`
	CustomDiscount *decimal.Decimal `json:"custom_discount,omitempty" gorm:"type:numeric(5,2)"`
	CustomGstRate  *decimal.Decimal `json:"custom_gst_rate,omitempty" gorm:"type:numeric(5,2)"`
	StockQuantity  int              `json:"stock_quantity" gorm:"not null;default:0"`
	MinStockLevel  *int             `json:"min_stock_level,omitempty"`
	RackLocation   *string          `json:"rack_location,omitempty" gorm:"type:text"`
	InternalQrCode *string          `json:"internal_qr_code,omitempty" gorm:"type:text"`
	CustomNotes    *string          `json:"custom_notes,omitempty" gorm:"type:text"`
	IsAvailable    bool             `json:"is_available" gorm:"not null;default:true"`
	CreatedAt      time.Time        `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time        `json:"updated_at" gorm:"not null"`
}

func (StoreOverlay) TableName() string { return "store_overlays" }

// MergedView is the effective record a store sees: canonical fields with
// the store's overlay applied on top.
type MergedView struct {
	CanonicalID          string           `json:"canonical_id"`
	StoreID              string           `json:"store_id"`
	Name                 string           `json:"name"`
	GenericName          *string          `json:"generic_name,omitempty"`
	CompositionText      string           `json:"composition_text"`
	ManufacturerName     string           `json:"manufacturer_name"`
	Form                 string           `json:"form"`
	PackSize             string           `json:"pack_size"`
	Schedule             *string          `json:"schedule,omitempty"`
	RequiresPrescription bool             `json:"requires_prescription"`
	GstRate              decimal.Decimal  `json:"gst_rate"`
	Mrp                  *decimal.Decimal `json:"mrp,omitempty"`
	Discount             *decimal.Decimal `json:"discount,omitempty"`
	HsnCode              *string          `json:"hsn_code,omitempty"`
	Status               meddomain.Status `json:"status"`
	StockQuantity        int              `json:"stock_quantity"`
	MinStockLevel        *int             `json:"min_stock_level,omitempty"`
	RackLocation         *string          `json:"rack_location,omitempty"`
	InternalQrCode       *string          `json:"internal_qr_code,omitempty"`
	CustomNotes          *string          `json:"custom_notes,omitempty"`
	IsAvailable          bool             `json:"is_available"`
	HasOverlay           bool             `json:"has_overlay"`
}

// Merge applies an overlay to a canonical record. Total over a nil
// overlay: a store that never stocked the item sees the canonical fields
// as available with zero stock.
func Merge(storeID string, m *meddomain.MedicineMaster, o *StoreOverlay) MergedView {
	view := MergedView{
		CanonicalID:          m.CanonicalID,
		StoreID:              storeID,
		Name:                 m.Name,
		GenericName:          m.GenericName,
		CompositionText:      m.CompositionText,
		ManufacturerName:     m.ManufacturerName,
		Form:                 m.Form,
		PackSize:             m.PackSize,
		Schedule:             m.Schedule,
		RequiresPrescription: m.RequiresPrescription,
		GstRate:              m.DefaultGstRate,
		HsnCode:              m.HsnCode,
		Status:               m.Status,
		IsAvailable:          true,
	}
	if o == nil {
		return view
	}
	view.HasOverlay = true
	if o.CustomName != nil {
		view.Name = *o.CustomName
	}
	if o.CustomGstRate != nil {
		view.GstRate = *o.CustomGstRate
	}
	view.Mrp = o.CustomMrp
	view.Discount = o.CustomDiscount
	view.StockQuantity = o.StockQuantity
	view.MinStockLevel = o.MinStockLevel
	view.RackLocation = o.RackLocation
	view.InternalQrCode = o.InternalQrCode
	view.CustomNotes = o.CustomNotes
	view.IsAvailable = o.IsAvailable
	return view
}
