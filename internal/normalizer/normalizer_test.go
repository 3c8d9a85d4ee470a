package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims and title-cases", "  paracetamol 500  ", "Paracetamol 500"},
		{"collapses whitespace", "crocin\t advance   tablet", "Crocin Advance Tablet"},
		{"already clean", "Dolo 650", "Dolo 650"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(tt.input))
			// idempotent
			assert.Equal(t, tt.want, Name(Name(tt.input)))
		})
	}
}

func TestStrengthAndPackSize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"500 Milligrams", "500 mg"},
		{"  5 Millilitre ", "5 ml"},
		{"10 Tablet", "10 tablets"},
		{"1 Strip", "1 strips"},
		{"20 caps", "20 capsules"},
		{"500mg", "500mg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Strength(tt.input))
		assert.Equal(t, tt.want, PackSize(tt.input))
		// stable under repeated application
		assert.Equal(t, tt.want, PackSize(PackSize(tt.input)))
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("Paracetamol", "paracetamol"))
	assert.Equal(t, 100, Similarity("", ""))
	assert.Equal(t, 0, Similarity("abc", ""))

	score := Similarity("Paracetamol", "Parecetamol")
	assert.Greater(t, score, 85)
	assert.Less(t, score, 100)

	// symmetric
	assert.Equal(t, Similarity("Azithral", "Azithromycin"), Similarity("Azithromycin", "Azithral"))

	// bounded
	assert.GreaterOrEqual(t, Similarity("completely", "different!!"), 0)
	assert.LessOrEqual(t, Similarity("completely", "different!!"), 100)
}
