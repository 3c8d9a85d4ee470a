// Package normalizer holds the pure text-normalization and similarity
// functions shared by identity resolution, ingestion and migration.
package normalizer

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// unitSynonyms folds the unit spellings seen in store submissions onto a
// single canonical token. Applied word-by-word after lowercasing, so the
// result is stable under repeated normalization.
var unitSynonyms = map[string]string{
	"milligram":   "mg",
	"milligrams":  "mg",
	"mgs":         "mg",
	"microgram":   "mcg",
	"micrograms":  "mcg",
	"ug":          "mcg",
	"gram":        "g",
	"grams":       "g",
	"gm":          "g",
	"gms":         "g",
	"millilitre":  "ml",
	"millilitres": "ml",
	"milliliter":  "ml",
	"milliliters": "ml",
	"mls":         "ml",
	"litre":       "l",
	"liter":       "l",
	"tab":         "tablets",
	"tabs":        "tablets",
	"tablet":      "tablets",
	"cap":         "capsules",
	"caps":        "capsules",
	"capsule":     "capsules",
	"strip":       "strips",
	"injection":   "injections",
	"sachet":      "sachets",
}

// Name trims, collapses whitespace and title-cases a product name.
func Name(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		if len(runes) > 0 {
			runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		}
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

// Strength lowercases a strength/composition fragment and folds unit
// synonyms ("500 Milligrams" -> "500 mg").
func Strength(s string) string {
	return foldUnits(s)
}

// PackSize lowercases a pack-size description and folds unit and
// container synonyms ("10 Tablet" -> "10 tablets").
func PackSize(s string) string {
	return foldUnits(s)
}

func foldUnits(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	for i, f := range fields {
		if folded, ok := unitSynonyms[f]; ok {
			fields[i] = folded
		}
	}
	return strings.Join(fields, " ")
}

// Similarity scores two strings in [0,100] from case-insensitive edit
// distance. Identical strings score 100; two empty strings score 100.
func Similarity(a, b string) int {
	la := strings.ToLower(a)
	lb := strings.ToLower(b)
	if la == lb {
		return 100
	}

	maxLen := len([]rune(la))
	if l := len([]rune(lb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(la, lb)
	score := 100 * (maxLen - dist) / maxLen
	if score < 0 {
		return 0
	}
	return score
}
