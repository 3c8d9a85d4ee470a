// Package identity derives canonical medicine IDs from product attributes
// and resolves near-duplicate submissions against the master store.
package identity

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/medikart/masterdata/internal/normalizer"
)

// Attributes are the identity-bearing fields of a medicine. The canonical
// ID is a pure function of these five values at creation time.
type Attributes struct {
	Name             string
	CompositionText  string
	ManufacturerName string
	Form             string
	PackSize         string
}

const maxSlugSegment = 24

// GenerateID builds `<manufacturer>-<name>-<form>-<hash8>` where each slug
// segment is length-capped and the suffix is the first 8 hex characters of
// a content hash over all five normalized attributes. Never recomputed
// after creation.
func GenerateID(attrs Attributes) string {
	name := normalizer.Name(attrs.Name)
	composition := normalizer.Strength(attrs.CompositionText)
	manufacturer := normalizer.Name(attrs.ManufacturerName)
	form := strings.ToLower(strings.TrimSpace(attrs.Form))
	packSize := normalizer.PackSize(attrs.PackSize)

	content := strings.Join([]string{name, composition, manufacturer, form, packSize}, "|")
	sum := sha256.Sum256([]byte(content))

	return fmt.Sprintf("%s-%s-%s-%x",
		capSegment(slug.Make(manufacturer)),
		capSegment(slug.Make(name)),
		capSegment(slug.Make(form)),
		sum[:4],
	)
}

func capSegment(s string) string {
	if s == "" {
		return "x"
	}
	runes := []rune(s)
	if len(runes) > maxSlugSegment {
		s = string(runes[:maxSlugSegment])
	}
	return strings.Trim(s, "-")
}
