package idmap

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	ingdomain "github.com/medikart/masterdata/internal/ingestion/domain"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Masters   meddomain.Repository
	Ingestion ingdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	masters   meddomain.Repository
	ingestion ingdomain.Service
}

func New(p Params) *Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("idmap.service"),
		genID:     p.GenID,
		masters:   p.Masters,
		ingestion: p.Ingestion,
	}
}

// Map binds a legacy ID to a canonical record. Remapping an already
// bound old ID moves it to the new record.
func (s *Service) Map(ctx context.Context, oldID, canonicalID, system string) (*IdMapping, error) {
	oldID = strings.TrimSpace(oldID)
	if oldID == "" {
		return nil, ErrInvalidOldID
	}
	canonicalID = strings.TrimSpace(canonicalID)

	master, err := s.masters.FindByID(ctx, s.db, canonicalID)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, meddomain.ErrNotFound
	}

	now := time.Now().UTC()
	mapping := &IdMapping{
		ID:          s.genID.Generate().Int64(),
		OldID:       oldID,
		CanonicalID: canonicalID,
		System:      strings.TrimSpace(system),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "old_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"canonical_id", "system", "updated_at"}),
		}).
		Create(mapping).Error
	if err != nil {
		return nil, err
	}
	return s.find(ctx, oldID)
}

// Lookup resolves a legacy ID to its canonical record.
func (s *Service) Lookup(ctx context.Context, oldID string) (*meddomain.MedicineMaster, error) {
	mapping, err := s.find(ctx, oldID)
	if err != nil {
		return nil, err
	}
	master, err := s.masters.FindByID(ctx, s.db, mapping.CanonicalID)
	if err != nil {
		return nil, err
	}
	if master == nil {
		return nil, meddomain.ErrNotFound
	}
	return master, nil
}

// LookupMapping returns the raw mapping row for a legacy ID.
func (s *Service) LookupMapping(ctx context.Context, oldID string) (*IdMapping, error) {
	return s.find(ctx, oldID)
}

// BatchImport migrates legacy records: each item flows through the
// ingestion pipeline (deduplicating against the existing catalog) and
// its old ID is bound to whatever canonical record came out. Items fail
// individually; the batch never aborts.
func (s *Service) BatchImport(ctx context.Context, storeID string, items []ImportItem) (ImportResult, error) {
	result := ImportResult{Mapping: make(map[string]string, len(items))}

	for _, item := range items {
		oldID := strings.TrimSpace(item.OldID)
		if oldID == "" {
			result.recordError(item.OldID, ErrInvalidOldID)
			continue
		}

		ingested, err := s.ingestion.Ingest(ctx, storeID, item.Record)
		if err != nil {
			result.recordError(oldID, err)
			continue
		}
		if _, err := s.Map(ctx, oldID, ingested.CanonicalID, item.System); err != nil {
			result.recordError(oldID, err)
			continue
		}

		if ingested.Created {
			result.Created++
		} else {
			result.Matched++
		}
		result.Mapping[oldID] = ingested.CanonicalID
	}

	s.log.Info("legacy batch imported",
		zap.Int("created", result.Created),
		zap.Int("matched", result.Matched),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) find(ctx context.Context, oldID string) (*IdMapping, error) {
	oldID = strings.TrimSpace(oldID)
	if oldID == "" {
		return nil, ErrInvalidOldID
	}
	var mapping IdMapping
	err := s.db.WithContext(ctx).Where("old_id = ?", oldID).First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
