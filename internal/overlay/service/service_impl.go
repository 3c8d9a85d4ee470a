package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/internal/overlay/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	maxDiscount = decimal.NewFromInt(100)
	maxGstRate  = decimal.NewFromInt(28)
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Masters meddomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	masters meddomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("overlay.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		masters: p.Masters,
	}
}

func (s *Service) Set(ctx context.Context, storeID string, req domain.SetRequest) (*domain.StoreOverlay, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, domain.ErrStoreRequired
	}
	canonicalID := strings.TrimSpace(req.CanonicalID)
	if err := validateSet(req); err != nil {
		return nil, err
	}

	var result *domain.StoreOverlay
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		master, err := s.masters.FindByID(ctx, tx, canonicalID)
		if err != nil {
			return err
		}
		if master == nil {
			return meddomain.ErrNotFound
		}

		now := time.Now().UTC()
		o, err := s.repo.FindForUpdate(ctx, tx, storeID, canonicalID)
		if err != nil {
			return err
		}
		if o == nil {
			o = &domain.StoreOverlay{
				ID:          s.genID.Generate().Int64(),
				StoreID:     storeID,
				CanonicalID: canonicalID,
				IsAvailable: true,
				CreatedAt:   now,
			}
		}
		applySet(o, req)
		o.UpdatedAt = now

		if err := s.repo.Upsert(ctx, tx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("overlay set",
		zap.String("store_id", storeID),
		zap.String("canonical_id", canonicalID),
	)
	return result, nil
}

func (s *Service) Get(ctx context.Context, storeID, canonicalID string) (*domain.StoreOverlay, error) {
	o, err := s.repo.Find(ctx, s.db, strings.TrimSpace(storeID), strings.TrimSpace(canonicalID))
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOverlayNotFound
	}
	return o, nil
}

func (s *Service) Remove(ctx context.Context, storeID, canonicalID string) error {
	affected, err := s.repo.Delete(ctx, s.db, strings.TrimSpace(storeID), strings.TrimSpace(canonicalID))
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrOverlayNotFound
	}
	return nil
}

func (s *Service) GetMerged(ctx context.Context, storeID, canonicalID string) (*domain.MergedView, error) {
	storeID = strings.TrimSpace(storeID)
	canonicalID = strings.TrimSpace(canonicalID)

	master, err := s.masters.FindByID(ctx, s.db, canonicalID)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, meddomain.ErrNotFound
	}
	o, err := s.repo.Find(ctx, s.db, storeID, canonicalID)
	if err != nil {
		return nil, err
	}
	view := domain.Merge(storeID, master, o)
	return &view, nil
}

// BulkMerged resolves many records in two queries: one over masters, one
// over the store's overlays. Unknown IDs are silently dropped.
func (s *Service) BulkMerged(ctx context.Context, storeID string, canonicalIDs []string) ([]domain.MergedView, error) {
	storeID = strings.TrimSpace(storeID)

	masters, err := s.masters.FindByIDs(ctx, s.db, canonicalIDs)
	if err != nil {
		return nil, err
	}
	overlays, err := s.repo.FindByStoreAndIDs(ctx, s.db, storeID, canonicalIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.StoreOverlay, len(overlays))
	for i := range overlays {
		byID[overlays[i].CanonicalID] = &overlays[i]
	}

	views := make([]domain.MergedView, 0, len(masters))
	for i := range masters {
		views = append(views, domain.Merge(storeID, &masters[i], byID[masters[i].CanonicalID]))
	}
	return views, nil
}

// IncrementStock raises the store's stock, creating the overlay when the
// store has none yet.
func (s *Service) IncrementStock(ctx context.Context, storeID, canonicalID string, qty int) (*domain.StoreOverlay, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidStock
	}
	return s.adjustStock(ctx, storeID, canonicalID, qty, true)
}

// DecrementStock lowers the store's stock, flooring at zero.
func (s *Service) DecrementStock(ctx context.Context, storeID, canonicalID string, qty int) (*domain.StoreOverlay, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidStock
	}
	return s.adjustStock(ctx, storeID, canonicalID, -qty, false)
}

func (s *Service) LowStock(ctx context.Context, storeID string, page pagination.Page) ([]domain.StoreOverlay, error) {
	return s.repo.ListLowStock(ctx, s.db, strings.TrimSpace(storeID), page)
}

func (s *Service) adjustStock(ctx context.Context, storeID, canonicalID string, delta int, createMissing bool) (*domain.StoreOverlay, error) {
	storeID = strings.TrimSpace(storeID)
	canonicalID = strings.TrimSpace(canonicalID)
	if storeID == "" {
		return nil, domain.ErrStoreRequired
	}

	var result *domain.StoreOverlay
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := s.repo.FindForUpdate(ctx, tx, storeID, canonicalID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if o == nil {
			if !createMissing {
				return domain.ErrOverlayNotFound
			}
			master, err := s.masters.FindByID(ctx, tx, canonicalID)
			if err != nil {
				return err
			}
			if master == nil {
				return meddomain.ErrNotFound
			}
			o = &domain.StoreOverlay{
				ID:          s.genID.Generate().Int64(),
				StoreID:     storeID,
				CanonicalID: canonicalID,
				IsAvailable: true,
				CreatedAt:   now,
			}
		}

		o.StockQuantity += delta
		if o.StockQuantity < 0 {
			o.StockQuantity = 0
		}
		o.UpdatedAt = now

		if err := s.repo.Upsert(ctx, tx, o); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func applySet(o *domain.StoreOverlay, req domain.SetRequest) {
	if req.CustomName != nil {
		o.CustomName = trimPtr(req.CustomName)
	}
	if req.CustomMrp != nil {
		o.CustomMrp = req.CustomMrp
	}
	if req.CustomDiscount != nil {
		o.CustomDiscount = req.CustomDiscount
	}
	if req.CustomGstRate != nil {
		o.CustomGstRate = req.CustomGstRate
	}
	if req.StockQuantity != nil {
		o.StockQuantity = *req.StockQuantity
	}
	if req.MinStockLevel != nil {
		o.MinStockLevel = req.MinStockLevel
	}
	if req.RackLocation != nil {
		o.RackLocation = trimPtr(req.RackLocation)
	}
	if req.InternalQrCode != nil {
		o.InternalQrCode = trimPtr(req.InternalQrCode)
	}
	if req.CustomNotes != nil {
		o.CustomNotes = trimPtr(req.CustomNotes)
	}
	if req.IsAvailable != nil {
		o.IsAvailable = *req.IsAvailable
	}
}

func validateSet(req domain.SetRequest) error {
	if strings.TrimSpace(req.CanonicalID) == "" {
		return meddomain.ErrNotFound
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return domain.ErrInvalidStock
	}
	if req.CustomDiscount != nil &&
		(req.CustomDiscount.IsNegative() || req.CustomDiscount.GreaterThan(maxDiscount)) {
		return domain.ErrInvalidDiscount
	}
	if req.CustomGstRate != nil &&
		(req.CustomGstRate.IsNegative() || req.CustomGstRate.GreaterThan(maxGstRate)) {
		return domain.ErrInvalidGstRate
	}
	if req.CustomMrp != nil && req.CustomMrp.IsNegative() {
		return domain.ErrInvalidPrice
	}
	return nil
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
