package identity

import (
	"context"
	"sort"
	"strings"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/internal/normalizer"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultThreshold is the similarity floor for fuzzy duplicate matches.
const DefaultThreshold = 85

// Candidate is an inbound submission checked for duplicates.
type Candidate struct {
	Name             string
	CompositionText  string
	ManufacturerName string
	PrimaryBarcode   string
}

// Match is one existing record considered a duplicate of the candidate.
type Match struct {
	Record           meddomain.MedicineMaster
	NameScore        int
	CompositionScore int
	Definitive       bool
}

// Overall is the mean of the two similarity scores.
func (m Match) Overall() int {
	return (m.NameScore + m.CompositionScore) / 2
}

// CandidateSource looks up potential duplicates in the master store.
// Implemented by the medicine repository.
type CandidateSource interface {
	FindByBarcode(ctx context.Context, db *gorm.DB, code string) (*meddomain.MedicineMaster, error)
	FindByManufacturerToken(ctx context.Context, db *gorm.DB, token string) ([]meddomain.MedicineMaster, error)
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Source CandidateSource
}

type Resolver struct {
	log    *zap.Logger
	source CandidateSource
}

func NewResolver(p Params) *Resolver {
	return &Resolver{
		log:    p.Log.Named("identity.resolver"),
		source: p.Source,
	}
}

// FindDuplicates resolves a candidate against the master store. A barcode
// hit is definitive and short-circuits with a single match; otherwise
// records sharing a manufacturer token are scored on name and composition
// similarity and kept when both reach the threshold. Results are ordered
// by descending overall score with canonical ID as tiebreak, so identical
// inputs against an unchanged store always return identical results.
func (r *Resolver) FindDuplicates(ctx context.Context, db *gorm.DB, cand Candidate, threshold int) ([]Match, error) {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}

	if code := strings.TrimSpace(cand.PrimaryBarcode); code != "" {
		existing, err := r.source.FindByBarcode(ctx, db, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return []Match{{
				Record:           *existing,
				NameScore:        100,
				CompositionScore: 100,
				Definitive:       true,
			}}, nil
		}
	}

	token := manufacturerToken(cand.ManufacturerName)
	if token == "" {
		return nil, nil
	}

	records, err := r.source.FindByManufacturerToken(ctx, db, token)
	if err != nil {
		return nil, err
	}

	name := normalizer.Name(cand.Name)
	composition := normalizer.Strength(cand.CompositionText)

	var matches []Match
	for _, rec := range records {
		nameScore := normalizer.Similarity(name, rec.Name)
		compScore := normalizer.Similarity(composition, rec.CompositionText)
		if nameScore >= threshold && compScore >= threshold {
			matches = append(matches, Match{
				Record:           rec,
				NameScore:        nameScore,
				CompositionScore: compScore,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		si := matches[i].NameScore + matches[i].CompositionScore
		sj := matches[j].NameScore + matches[j].CompositionScore
		if si != sj {
			return si > sj
		}
		return matches[i].Record.CanonicalID < matches[j].Record.CanonicalID
	})

	return matches, nil
}

// manufacturerToken is the first word of the manufacturer name, enough to
// bound the fuzzy scan without missing house-brand spelling variants.
func manufacturerToken(manufacturer string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(manufacturer)))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
