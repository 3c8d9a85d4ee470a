package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/medikart/masterdata/internal/identity"
	"github.com/medikart/masterdata/internal/ingestion/domain"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/internal/normalizer"
	"github.com/medikart/masterdata/internal/storecontext"
	"github.com/medikart/masterdata/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var maxGstRate = decimal.NewFromInt(28)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Masters  meddomain.Repository
	Resolver *identity.Resolver
	Enqueuer meddomain.SyncEnqueuer
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	masters  meddomain.Repository
	resolver *identity.Resolver
	enqueuer meddomain.SyncEnqueuer
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ingestion.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		masters:  p.Masters,
		resolver: p.Resolver,
		enqueuer: p.Enqueuer,
	}
}

// Ingest resolves one submission: a duplicate of an existing record bumps
// that record's usage, anything else becomes a new canonical record that
// is immediately usable. Either way the submission is recorded and the
// promotion rule is re-evaluated.
func (s *Service) Ingest(ctx context.Context, storeID string, req domain.IngestRequest) (*domain.IngestResult, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, domain.ErrStoreRequired
	}
	source, err := normalizeSource(req.Source)
	if err != nil {
		return nil, err
	}
	if err := validateIngest(req); err != nil {
		return nil, err
	}

	score := ScoreConfidence(req)
	candidate := identity.Candidate{
		Name:             req.Name,
		CompositionText:  req.CompositionText,
		ManufacturerName: req.ManufacturerName,
	}
	if req.PrimaryBarcode != nil {
		candidate.PrimaryBarcode = *req.PrimaryBarcode
	}

	var result *domain.IngestResult
	run := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			matches, err := s.resolver.FindDuplicates(ctx, tx, candidate, req.MatchThreshold)
			if err != nil {
				return err
			}
			if len(matches) > 0 {
				result, err = s.resolveDuplicate(ctx, tx, storeID, source, score, req, matches[0])
				return err
			}
			result, err = s.createMaster(ctx, tx, storeID, source, score, req)
			return err
		})
	}
	err = run()
	if errors.Is(err, meddomain.ErrConflict) {
		// lost a creation race; the winner's row is visible now, so a
		// rerun resolves this submission as the duplicate it is
		err = run()
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("submission ingested",
		zap.String("store_id", storeID),
		zap.String("canonical_id", result.CanonicalID),
		zap.Bool("created", result.Created),
		zap.Bool("promoted", result.Promoted),
	)
	return result, nil
}

func (s *Service) BulkIngest(ctx context.Context, storeID string, reqs []domain.IngestRequest) (meddomain.BulkResult, error) {
	var result meddomain.BulkResult
	for i, req := range reqs {
		if _, err := s.Ingest(ctx, storeID, req); err != nil {
			result.RecordError(fmt.Sprintf("item[%d] %s", i, req.Name), err)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// IncrementUsage records one more use of a canonical record by a store
// and re-evaluates the promotion rule.
func (s *Service) IncrementUsage(ctx context.Context, storeID, canonicalID string) (*meddomain.MedicineMaster, error) {
	storeID = strings.TrimSpace(storeID)
	canonicalID = strings.TrimSpace(canonicalID)
	if storeID == "" {
		return nil, domain.ErrStoreRequired
	}

	var result *meddomain.MedicineMaster
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := s.masters.FindByIDForUpdate(ctx, tx, canonicalID)
		if err != nil {
			return err
		}
		if master == nil {
			return meddomain.ErrNotFound
		}
		master.UsageCount++

		pending, err := s.repo.FindByCanonicalID(ctx, tx, canonicalID)
		if err != nil {
			return err
		}
		promoted := false
		if pending != nil {
			pending.AddStore(storeID)
			pending.UsageCount++
			pending.UpdatedAt = time.Now().UTC()
			promoted, err = s.promoteIfEligible(ctx, tx, master, pending)
			if err != nil {
				return err
			}
			if err := s.repo.Save(ctx, tx, pending); err != nil {
				return err
			}
		}

		master.UpdatedAt = time.Now().UTC()
		if err := s.masters.Save(ctx, tx, master); err != nil {
			return err
		}
		if err := s.enqueuer.Enqueue(ctx, tx, meddomain.SyncUpsert, master.CanonicalID); err != nil {
			return err
		}
		if promoted {
			s.log.Info("medicine promoted",
				zap.String("canonical_id", master.CanonicalID),
				zap.Int("confidence", master.ConfidenceScore),
			)
		}
		result = master
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Promote re-runs the promotion check for a record outside the ingest
// path. Reports whether this call performed the promotion.
func (s *Service) Promote(ctx context.Context, canonicalID string) (bool, error) {
	canonicalID = strings.TrimSpace(canonicalID)

	var promoted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := s.masters.FindByIDForUpdate(ctx, tx, canonicalID)
		if err != nil {
			return err
		}
		if master == nil {
			return meddomain.ErrNotFound
		}

		pending, err := s.repo.FindByCanonicalID(ctx, tx, canonicalID)
		if err != nil {
			return err
		}

		promoted, err = s.promoteIfEligible(ctx, tx, master, pending)
		if err != nil || !promoted {
			return err
		}

		now := time.Now().UTC()
		master.UpdatedAt = now
		if err := s.masters.Save(ctx, tx, master); err != nil {
			return err
		}
		pending.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, pending); err != nil {
			return err
		}
		return s.enqueuer.Enqueue(ctx, tx, meddomain.SyncUpsert, master.CanonicalID)
	})
	if err != nil {
		return false, err
	}

	if promoted {
		s.log.Info("medicine promoted", zap.String("canonical_id", canonicalID))
	}
	return promoted, nil
}

func (s *Service) ListPending(ctx context.Context, req domain.PendingListRequest) ([]domain.PendingMedicine, error) {
	filter := domain.ListFilter{
		Status: domain.PendingStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		Source: domain.Source(strings.ToUpper(strings.TrimSpace(req.Source))),
	}
	return s.repo.List(ctx, s.db, filter, req.Page)
}

func (s *Service) GetPending(ctx context.Context, id int64) (*domain.PendingMedicine, error) {
	p, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPendingNotFound
	}
	return p, nil
}

// Reject marks a submission rejected. When the submission created a
// record that no other store ever used, the record is discontinued with
// it.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (*domain.PendingMedicine, error) {
	var result *domain.PendingMedicine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pending, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if pending == nil {
			return domain.ErrPendingNotFound
		}
		if pending.Status == domain.PendingStatusApproved || pending.Status == domain.PendingStatusRejected {
			return domain.ErrAlreadyResolved
		}

		now := time.Now().UTC()
		pending.Status = domain.PendingStatusRejected
		if trimmed := strings.TrimSpace(reason); trimmed != "" {
			pending.RejectionReason = &trimmed
		}
		pending.UpdatedAt = now

		if pending.CanonicalID != nil {
			master, err := s.masters.FindByIDForUpdate(ctx, tx, *pending.CanonicalID)
			if err != nil {
				return err
			}
			if master != nil && master.Status == meddomain.StatusPending && master.UsageCount <= 1 {
				master.Status = meddomain.StatusDiscontinued
				master.UpdatedAt = now
				if err := s.masters.Save(ctx, tx, master); err != nil {
					return err
				}
				if err := s.appendVersion(ctx, tx, master, meddomain.ChangeDiscontinued); err != nil {
					return err
				}
				if err := s.enqueuer.Enqueue(ctx, tx, meddomain.SyncUpsert, master.CanonicalID); err != nil {
					return err
				}
			}
		}

		if err := s.repo.Save(ctx, tx, pending); err != nil {
			return err
		}
		result = pending
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("submission rejected", zap.Int64("pending_id", id))
	return result, nil
}

func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	byStatus, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return nil, err
	}
	bySource, err := s.repo.CountBySource(ctx, s.db)
	if err != nil {
		return nil, err
	}
	stats := &domain.Stats{ByStatus: byStatus, BySource: bySource}
	for _, count := range byStatus {
		stats.Total += count
	}
	return stats, nil
}

func (s *Service) resolveDuplicate(ctx context.Context, tx *gorm.DB, storeID string, source domain.Source, score int, req domain.IngestRequest, match identity.Match) (*domain.IngestResult, error) {
	master, err := s.masters.FindByIDForUpdate(ctx, tx, match.Record.CanonicalID)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, meddomain.ErrNotFound
	}

	now := time.Now().UTC()
	master.UsageCount++

	pending, err := s.repo.FindByCanonicalID(ctx, tx, master.CanonicalID)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		// record predates the pipeline; start tracking adoption now
		pending = s.newPending(storeID, source, score, req)
		pending.Status = domain.PendingStatusDuplicateResolved
		pending.CanonicalID = &master.CanonicalID
		if err := s.repo.Insert(ctx, tx, pending); err != nil {
			return nil, err
		}
	} else {
		pending.AddStore(storeID)
		pending.UsageCount++
		pending.UpdatedAt = now
	}

	promoted, err := s.promoteIfEligible(ctx, tx, master, pending)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, tx, pending); err != nil {
		return nil, err
	}

	master.UpdatedAt = now
	if err := s.masters.Save(ctx, tx, master); err != nil {
		return nil, err
	}
	if err := s.enqueuer.Enqueue(ctx, tx, meddomain.SyncUpsert, master.CanonicalID); err != nil {
		return nil, err
	}

	return &domain.IngestResult{
		CanonicalID:        master.CanonicalID,
		MatchedExisting:    true,
		InstantlyAvailable: true,
		ConfidenceScore:    master.ConfidenceScore,
		Promoted:           promoted,
		PendingID:          pending.ID,
	}, nil
}

func (s *Service) createMaster(ctx context.Context, tx *gorm.DB, storeID string, source domain.Source, score int, req domain.IngestRequest) (*domain.IngestResult, error) {
	canonicalID := identity.GenerateID(identity.Attributes{
		Name:             req.Name,
		CompositionText:  req.CompositionText,
		ManufacturerName: req.ManufacturerName,
		Form:             req.Form,
		PackSize:         req.PackSize,
	})

	// the fuzzy scan can miss a record whose stored fields drifted from
	// the submission; the content-derived ID is the last word
	existing, err := s.masters.FindByIDForUpdate(ctx, tx, canonicalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.resolveDuplicate(ctx, tx, storeID, source, score, req, identity.Match{Record: *existing})
	}

	now := time.Now().UTC()
	master := &meddomain.MedicineMaster{
		CanonicalID:          canonicalID,
		Name:                 normalizer.Name(req.Name),
		GenericName:          trimPtr(req.GenericName),
		CompositionText:      normalizer.Strength(req.CompositionText),
		ManufacturerName:     normalizer.Name(req.ManufacturerName),
		Form:                 strings.ToLower(strings.TrimSpace(req.Form)),
		PackSize:             normalizer.PackSize(req.PackSize),
		Schedule:             trimPtr(req.Schedule),
		RequiresPrescription: req.RequiresPrescription,
		HsnCode:              trimPtr(req.HsnCode),
		PrimaryBarcode:       trimPtr(req.PrimaryBarcode),
		Status:               meddomain.StatusPending,
		ConfidenceScore:      score,
		UsageCount:           1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.DefaultGstRate != nil {
		master.DefaultGstRate = *req.DefaultGstRate
	}

	if err := s.masters.Insert(ctx, tx, master); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, meddomain.ErrConflict
		}
		return nil, err
	}
	if err := s.appendVersion(ctx, tx, master, meddomain.ChangeCreated); err != nil {
		return nil, err
	}
	if err := s.enqueuer.Enqueue(ctx, tx, meddomain.SyncUpsert, master.CanonicalID); err != nil {
		return nil, err
	}

	pending := s.newPending(storeID, source, score, req)
	pending.CanonicalID = &master.CanonicalID
	if err := s.repo.Insert(ctx, tx, pending); err != nil {
		return nil, err
	}

	return &domain.IngestResult{
		CanonicalID:        master.CanonicalID,
		Created:            true,
		InstantlyAvailable: true,
		ConfidenceScore:    score,
		PendingID:          pending.ID,
	}, nil
}

// promoteIfEligible flips a record to VERIFIED once confidence and
// distinct-store adoption both clear the promotion bar. Idempotent.
func (s *Service) promoteIfEligible(ctx context.Context, tx *gorm.DB, master *meddomain.MedicineMaster, pending *domain.PendingMedicine) (bool, error) {
	if master.Status != meddomain.StatusPending && master.Status != meddomain.StatusPendingReview {
		return false, nil
	}
	if master.ConfidenceScore < domain.PromoteConfidence {
		return false, nil
	}
	if pending == nil || pending.DistinctStores() < domain.PromoteStores {
		return false, nil
	}

	master.Status = meddomain.StatusVerified
	if pending.Status == domain.PendingStatusPending {
		pending.Status = domain.PendingStatusApproved
	}
	if err := s.appendVersion(ctx, tx, master, meddomain.ChangePromoted); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) appendVersion(ctx context.Context, tx *gorm.DB, m *meddomain.MedicineMaster, changeType string) error {
	number, err := s.masters.NextVersionNumber(ctx, tx, m.CanonicalID)
	if err != nil {
		return err
	}
	snapshot, err := meddomain.NewSnapshot(m).Encode()
	if err != nil {
		return err
	}
	version := &meddomain.MedicineVersion{
		MedicineID:    m.CanonicalID,
		VersionNumber: number,
		SnapshotData:  snapshot,
		ChangeType:    changeType,
		ChangedAt:     time.Now().UTC(),
	}
	if actor := storecontext.ActorFromContext(ctx); actor.ID != "" {
		changedBy := actor.ID
		version.ChangedBy = &changedBy
	}
	return s.masters.InsertVersion(ctx, tx, version)
}

func (s *Service) newPending(storeID string, source domain.Source, score int, req domain.IngestRequest) *domain.PendingMedicine {
	now := time.Now().UTC()
	return &domain.PendingMedicine{
		ID:                   s.genID.Generate().Int64(),
		Name:                 normalizer.Name(req.Name),
		GenericName:          trimPtr(req.GenericName),
		CompositionText:      normalizer.Strength(req.CompositionText),
		ManufacturerName:     normalizer.Name(req.ManufacturerName),
		Form:                 strings.ToLower(strings.TrimSpace(req.Form)),
		PackSize:             normalizer.PackSize(req.PackSize),
		Schedule:             trimPtr(req.Schedule),
		RequiresPrescription: req.RequiresPrescription,
		HsnCode:              trimPtr(req.HsnCode),
		PrimaryBarcode:       trimPtr(req.PrimaryBarcode),
		Source:               source,
		Status:               domain.PendingStatusPending,
		ConfidenceScore:      score,
		SubmittedBy:          storeID,
		UsedByStoreIDs:       datatypes.NewJSONSlice([]string{storeID}),
		UsageCount:           1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func normalizeSource(source domain.Source) (domain.Source, error) {
	normalized := domain.Source(strings.ToUpper(strings.TrimSpace(string(source))))
	switch normalized {
	case "":
		return domain.SourceAPI, nil
	case domain.SourceScan, domain.SourceManual, domain.SourceCSVImport, domain.SourceAPI, domain.SourceSystem:
		return normalized, nil
	default:
		return "", domain.ErrInvalidSource
	}
}

func validateIngest(req domain.IngestRequest) error {
	if utf8.RuneCountInString(normalizer.Name(req.Name)) < 3 {
		return meddomain.ErrInvalidName
	}
	if utf8.RuneCountInString(normalizer.Strength(req.CompositionText)) < 3 {
		return meddomain.ErrInvalidComposition
	}
	if utf8.RuneCountInString(normalizer.Name(req.ManufacturerName)) < 2 {
		return meddomain.ErrInvalidManufacturer
	}
	if strings.TrimSpace(req.Form) == "" {
		return meddomain.ErrInvalidForm
	}
	if strings.TrimSpace(req.PackSize) == "" {
		return meddomain.ErrInvalidPackSize
	}
	if req.DefaultGstRate != nil && !validGstRate(*req.DefaultGstRate) {
		return meddomain.ErrInvalidGstRate
	}
	return nil
}

func validGstRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(maxGstRate)
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
