package governance

import (
	"context"
	"strings"

	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Medicines meddomain.Service
	Repo      meddomain.Repository
}

// Service is the governance surface: policy-checked lifecycle moves and
// data-quality audits over the canonical catalog.
type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	medicines meddomain.Service
	repo      meddomain.Repository
}

func New(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("governance.service"),
		medicines: p.Medicines,
		repo:      p.Repo,
	}
}

// Discontinue retires a record from the catalog. The row and its history
// survive; search hides it by default.
func (s *Service) Discontinue(ctx context.Context, canonicalID string) (*meddomain.MedicineMaster, error) {
	m, err := s.medicines.SoftDelete(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	s.log.Info("medicine discontinued", zap.String("canonical_id", m.CanonicalID))
	return m, nil
}

// Restore brings a discontinued record back as PENDING_REVIEW; it must
// re-earn VERIFIED.
func (s *Service) Restore(ctx context.Context, canonicalID string) (*meddomain.MedicineMaster, error) {
	current, err := s.medicines.Get(ctx, canonicalID)
	if err != nil {
		return nil, err
	}
	if current.Status != meddomain.StatusDiscontinued {
		return nil, meddomain.ErrConflict
	}

	status := meddomain.StatusPendingReview
	m, err := s.medicines.Update(ctx, canonicalID, meddomain.UpdatePatch{Status: &status})
	if err != nil {
		return nil, err
	}
	s.log.Info("medicine restored", zap.String("canonical_id", m.CanonicalID))
	return m, nil
}

// Audit reports the completeness of one record.
func (s *Service) Audit(ctx context.Context, canonicalID string) (*Completeness, error) {
	m, err := s.medicines.Get(ctx, strings.TrimSpace(canonicalID))
	if err != nil {
		return nil, err
	}
	report := ScoreCompleteness(m)
	return &report, nil
}

// AuditBatch reports completeness for many records; unknown IDs are
// dropped.
func (s *Service) AuditBatch(ctx context.Context, canonicalIDs []string) ([]Completeness, error) {
	records, err := s.repo.FindByIDs(ctx, s.db, canonicalIDs)
	if err != nil {
		return nil, err
	}
	reports := make([]Completeness, 0, len(records))
	for i := range records {
		reports = append(reports, ScoreCompleteness(&records[i]))
	}
	return reports, nil
}
