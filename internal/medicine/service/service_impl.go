package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/medikart/masterdata/internal/identity"
	"github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/internal/normalizer"
	"github.com/medikart/masterdata/internal/storecontext"
	"github.com/medikart/masterdata/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultConfidence is assigned to directly-created records that carry no
// explicit score.
const DefaultConfidence = 50

var maxGstRate = decimal.NewFromInt(28)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Enqueuer domain.SyncEnqueuer
	Guard    domain.MutationGuard `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	enqueuer domain.SyncEnqueuer
	guard    domain.MutationGuard
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("medicine.service"),
		repo:     p.Repo,
		enqueuer: p.Enqueuer,
		guard:    p.Guard,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.MedicineMaster, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &domain.MedicineMaster{
		CanonicalID: identity.GenerateID(identity.Attributes{
			Name:             req.Name,
			CompositionText:  req.CompositionText,
			ManufacturerName: req.ManufacturerName,
			Form:             req.Form,
			PackSize:         req.PackSize,
		}),
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
		AlternateBarcodes:    datatypes.NewJSONSlice(dedupeStrings(req.AlternateBarcodes)),
		Status:               domain.StatusPending,
		ConfidenceScore:      DefaultConfidence,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.DefaultGstRate != nil {
		m.DefaultGstRate = *req.DefaultGstRate
	}
	if req.ConfidenceScore != nil {
		m.ConfidenceScore = clampScore(*req.ConfidenceScore)
	}

	actor := storecontext.ActorFromContext(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, m); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrConflict
			}
			return err
		}
		if err := s.appendVersion(ctx, tx, m, domain.ChangeCreated, actor); err != nil {
			return err
		}
		return s.enqueuer.Enqueue(ctx, tx, domain.SyncUpsert, m.CanonicalID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("medicine created", zap.String("canonical_id", m.CanonicalID))
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.MedicineMaster, error) {
	m, err := s.repo.FindByID(ctx, s.db, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.MedicineMaster, error) {
	filter := domain.ListFilter{
		Status:       domain.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		Manufacturer: strings.TrimSpace(req.Manufacturer),
	}
	return s.repo.List(ctx, s.db, filter, req.Page)
}

func (s *Service) Update(ctx context.Context, id string, patch domain.UpdatePatch) (*domain.MedicineMaster, error) {
	return s.mutate(ctx, id, domain.ChangeUpdated, func(m *domain.MedicineMaster) error {
		return applyPatch(m, patch)
	})
}

func (s *Service) SoftDelete(ctx context.Context, id string) (*domain.MedicineMaster, error) {
	return s.mutate(ctx, id, domain.ChangeDiscontinued, func(m *domain.MedicineMaster) error {
		m.Status = domain.StatusDiscontinued
		return nil
	})
}

func (s *Service) Rollback(ctx context.Context, id string, version int) (*domain.MedicineMaster, error) {
	id = strings.TrimSpace(id)
	actor := storecontext.ActorFromContext(ctx)

	var result *domain.MedicineMaster
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if !s.canMutate(m, actor) {
			return domain.ErrPolicyDenied
		}

		target, err := s.repo.FindVersion(ctx, tx, id, version)
		if err != nil {
			return err
		}
		if target == nil {
			return domain.ErrVersionNotFound
		}

		snapshot, err := domain.DecodeSnapshot(target.SnapshotData)
		if err != nil {
			return fmt.Errorf("decode snapshot v%d: %w", version, err)
		}
		snapshot.Apply(m)
		m.UpdatedAt = time.Now().UTC()

		if err := s.repo.Save(ctx, tx, m); err != nil {
			return err
		}
		if err := s.appendVersion(ctx, tx, m, domain.RollbackChangeType(version), actor); err != nil {
			return err
		}
		if err := s.enqueuer.Enqueue(ctx, tx, domain.SyncUpsert, m.CanonicalID); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("medicine rolled back",
		zap.String("canonical_id", id),
		zap.Int("target_version", version),
	)
	return result, nil
}

func (s *Service) History(ctx context.Context, id string) ([]domain.MedicineVersion, error) {
	id = strings.TrimSpace(id)
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.ListVersions(ctx, s.db, id)
}

func (s *Service) BulkCreate(ctx context.Context, reqs []domain.CreateRequest) (domain.BulkResult, error) {
	var result domain.BulkResult
	for i, req := range reqs {
		if _, err := s.Create(ctx, req); err != nil {
			result.RecordError(fmt.Sprintf("item[%d] %s", i, req.Name), err)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *Service) BulkUpdate(ctx context.Context, items []domain.BulkUpdateItem) (domain.BulkResult, error) {
	var result domain.BulkResult
	for _, item := range items {
		if _, err := s.Update(ctx, item.CanonicalID, item.Patch); err != nil {
			result.RecordError(item.CanonicalID, err)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// mutate runs one locked read-modify-write cycle: lock, policy check,
// apply, save, append the next version, enqueue the index sync.
func (s *Service) mutate(ctx context.Context, id, changeType string, apply func(*domain.MedicineMaster) error) (*domain.MedicineMaster, error) {
	id = strings.TrimSpace(id)
	actor := storecontext.ActorFromContext(ctx)

	var result *domain.MedicineMaster
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.ErrNotFound
		}
		if !s.canMutate(m, actor) {
			return domain.ErrPolicyDenied
		}

		if err := apply(m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()

		if err := s.repo.Save(ctx, tx, m); err != nil {
			return err
		}
		if err := s.appendVersion(ctx, tx, m, changeType, actor); err != nil {
			return err
		}
		if err := s.enqueuer.Enqueue(ctx, tx, domain.SyncUpsert, m.CanonicalID); err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) canMutate(m *domain.MedicineMaster, actor storecontext.Actor) bool {
	if s.guard == nil {
		return true
	}
	return s.guard.CanMutate(m.Status, actor.ID, actor.Role)
}

func (s *Service) appendVersion(ctx context.Context, tx *gorm.DB, m *domain.MedicineMaster, changeType string, actor storecontext.Actor) error {
	number, err := s.repo.NextVersionNumber(ctx, tx, m.CanonicalID)
	if err != nil {
		return err
	}
	snapshot, err := domain.NewSnapshot(m).Encode()
	if err != nil {
		return err
	}
	version := &domain.MedicineVersion{
		MedicineID:    m.CanonicalID,
		VersionNumber: number,
		SnapshotData:  snapshot,
		ChangeType:    changeType,
		ChangedAt:     time.Now().UTC(),
	}
	if actor.ID != "" {
		changedBy := actor.ID
		version.ChangedBy = &changedBy
	}
	return s.repo.InsertVersion(ctx, tx, version)
}

func applyPatch(m *domain.MedicineMaster, patch domain.UpdatePatch) error {
	if patch.Name != nil {
		name := normalizer.Name(*patch.Name)
		if utf8.RuneCountInString(name) < 3 {
			return domain.ErrInvalidName
		}
		m.Name = name
	}
	if patch.GenericName != nil {
		m.GenericName = trimPtr(patch.GenericName)
	}
	if patch.CompositionText != nil {
		composition := normalizer.Strength(*patch.CompositionText)
		if utf8.RuneCountInString(composition) < 3 {
			return domain.ErrInvalidComposition
		}
		m.CompositionText = composition
	}
	if patch.ManufacturerName != nil {
		manufacturer := normalizer.Name(*patch.ManufacturerName)
		if utf8.RuneCountInString(manufacturer) < 2 {
			return domain.ErrInvalidManufacturer
		}
		m.ManufacturerName = manufacturer
	}
	if patch.Form != nil {
		form := strings.ToLower(strings.TrimSpace(*patch.Form))
		if form == "" {
			return domain.ErrInvalidForm
		}
		m.Form = form
	}
	if patch.PackSize != nil {
		packSize := normalizer.PackSize(*patch.PackSize)
		if packSize == "" {
			return domain.ErrInvalidPackSize
		}
		m.PackSize = packSize
	}
	if patch.Schedule != nil {
		m.Schedule = trimPtr(patch.Schedule)
	}
	if patch.RequiresPrescription != nil {
		m.RequiresPrescription = *patch.RequiresPrescription
	}
	if patch.DefaultGstRate != nil {
		if !validGstRate(*patch.DefaultGstRate) {
			return domain.ErrInvalidGstRate
		}
		m.DefaultGstRate = *patch.DefaultGstRate
	}
	if patch.HsnCode != nil {
		m.HsnCode = trimPtr(patch.HsnCode)
	}
	if patch.PrimaryBarcode != nil {
		m.PrimaryBarcode = trimPtr(patch.PrimaryBarcode)
	}
	if patch.AlternateBarcodes != nil {
		m.AlternateBarcodes = datatypes.NewJSONSlice(dedupeStrings(patch.AlternateBarcodes))
	}
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	if patch.ConfidenceScore != nil {
		m.ConfidenceScore = clampScore(*patch.ConfidenceScore)
	}
	return nil
}

func validateCreate(req domain.CreateRequest) error {
	if utf8.RuneCountInString(normalizer.Name(req.Name)) < 3 {
		return domain.ErrInvalidName
	}
	if utf8.RuneCountInString(normalizer.Strength(req.CompositionText)) < 3 {
		return domain.ErrInvalidComposition
	}
	if utf8.RuneCountInString(normalizer.Name(req.ManufacturerName)) < 2 {
		return domain.ErrInvalidManufacturer
	}
	if strings.TrimSpace(req.Form) == "" {
		return domain.ErrInvalidForm
	}
	if strings.TrimSpace(req.PackSize) == "" {
		return domain.ErrInvalidPackSize
	}
	if req.DefaultGstRate != nil && !validGstRate(*req.DefaultGstRate) {
		return domain.ErrInvalidGstRate
	}
	return nil
}

func validGstRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(maxGstRate)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
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

func dedupeStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
