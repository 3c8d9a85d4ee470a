package governance

import (
	"strings"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
)

type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue is one completeness finding on a record.
type Issue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Completeness is the quality report for one record. Score starts at 100
// and each missing field subtracts its weight, floored at zero.
type Completeness struct {
	CanonicalID string  `json:"canonical_id"`
	Score       int     `json:"score"`
	Issues      []Issue `json:"issues,omitempty"`
}

// ScoreCompleteness audits a record's data quality. Pure; the same
// record always produces the same report.
func ScoreCompleteness(m *meddomain.MedicineMaster) Completeness {
	report := Completeness{CanonicalID: m.CanonicalID, Score: 100}

	check := func(ok bool, field string, weight int, severity Severity, message string) {
		if ok {
			return
		}
		report.Score -= weight
		report.Issues = append(report.Issues, Issue{Field: field, Severity: severity, Message: message})
	}

	check(strings.TrimSpace(m.Name) != "", "name", 20, SeverityError, "name is missing")
	check(strings.TrimSpace(m.CompositionText) != "", "composition_text", 20, SeverityError, "composition is missing")
	check(strings.TrimSpace(m.ManufacturerName) != "", "manufacturer_name", 15, SeverityError, "manufacturer is missing")
	check(hasText(m.HsnCode), "hsn_code", 10, SeverityWarning, "hsn code is missing")
	check(hasText(m.GenericName), "generic_name", 10, SeverityWarning, "generic name is missing")
	check(hasText(m.PrimaryBarcode), "primary_barcode", 10, SeverityWarning, "no barcode recorded")
	if m.RequiresPrescription {
		// flagged only; schedule carries no score weight
		check(hasText(m.Schedule), "schedule", 0, SeverityWarning, "prescription product without schedule")
	}

	if report.Score < 0 {
		report.Score = 0
	}
	return report
}

func hasText(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}
