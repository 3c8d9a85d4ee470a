package service

import (
	"strings"

	"github.com/medikart/masterdata/internal/ingestion/domain"
	"github.com/medikart/masterdata/internal/normalizer"
)

// Field weights for confidence scoring. A fully described submission
// scores 100; sparse scan data lands well below the promotion bar.
const (
	weightName         = 15
	weightGeneric      = 10
	weightComposition  = 20
	weightManufacturer = 15
	weightForm         = 10
	weightPackSize     = 5
	weightSchedule     = 5
	weightHsn          = 10
	weightBarcode      = 10
)

// ScoreConfidence rates how completely a submission describes the
// product. Pure; identical input always scores identically.
func ScoreConfidence(req domain.IngestRequest) int {
	score := 0
	if len(normalizer.Name(req.Name)) >= 3 {
		score += weightName
	}
	if hasText(req.GenericName) {
		score += weightGeneric
	}
	if len(normalizer.Strength(req.CompositionText)) >= 3 {
		score += weightComposition
	}
	if len(normalizer.Name(req.ManufacturerName)) >= 2 {
		score += weightManufacturer
	}
	if strings.TrimSpace(req.Form) != "" {
		score += weightForm
	}
	if strings.TrimSpace(req.PackSize) != "" {
		score += weightPackSize
	}
	if hasText(req.Schedule) {
		score += weightSchedule
	}
	if hasText(req.HsnCode) {
		score += weightHsn
	}
	if hasText(req.PrimaryBarcode) {
		score += weightBarcode
	}
	if score > 100 {
		score = 100
	}
	return score
}

func hasText(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}
