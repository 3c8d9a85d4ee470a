// Package search keeps a denormalized Elasticsearch projection of the
// master store eventually consistent with it, and serves the read-side
// query surface. The master store is the source of truth; index writes
// ride a DB outbox and never fail a mutation.
package search

import (
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
)

// Document is the denormalized search projection of one canonical record,
// keyed by canonical ID.
type Document struct {
	CanonicalID          string  `json:"canonical_id"`
	Name                 string  `json:"name"`
	GenericName          string  `json:"generic_name,omitempty"`
	CompositionText      string  `json:"composition_text"`
	ManufacturerName     string  `json:"manufacturer_name"`
	Form                 string  `json:"form"`
	PackSize             string  `json:"pack_size"`
	Schedule             string  `json:"schedule,omitempty"`
	RequiresPrescription bool    `json:"requires_prescription"`
	Status               string  `json:"status"`
	DefaultGstRate       float64 `json:"default_gst_rate"`
	UsageCount           int64   `json:"usage_count"`
	ConfidenceScore      float64 `json:"confidence_score"`
	PrimaryBarcode       string  `json:"primary_barcode,omitempty"`
	UpdatedAt            int64   `json:"updated_at"`
}

// FromMaster converts a canonical record to its index document. Decimal
// fields become floats only here, at the index boundary.
func FromMaster(m *meddomain.MedicineMaster) Document {
	doc := Document{
		CanonicalID:          m.CanonicalID,
		Name:                 m.Name,
		CompositionText:      m.CompositionText,
		ManufacturerName:     m.ManufacturerName,
		Form:                 m.Form,
		PackSize:             m.PackSize,
		RequiresPrescription: m.RequiresPrescription,
		Status:               string(m.Status),
		UsageCount:           m.UsageCount,
		ConfidenceScore:      float64(m.ConfidenceScore),
		UpdatedAt:            m.UpdatedAt.Unix(),
	}
	doc.DefaultGstRate, _ = m.DefaultGstRate.Float64()
	if m.GenericName != nil {
		doc.GenericName = *m.GenericName
	}
	if m.Schedule != nil {
		doc.Schedule = *m.Schedule
	}
	if m.PrimaryBarcode != nil {
		doc.PrimaryBarcode = *m.PrimaryBarcode
	}
	return doc
}
