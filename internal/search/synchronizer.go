package search

import (
	"context"
	"errors"
	"time"

	"github.com/medikart/masterdata/internal/config"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RebuildState is the resumable cursor of a full index rebuild. A single
// row; partial progress survives a restart.
type RebuildState struct {
	ID          uint `gorm:"primaryKey"`
	Offset      int  `gorm:"not null;default:0"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

func (RebuildState) TableName() string { return "search_rebuild_state" }

// Health compares the derived index against the store of record. Advisory
// only; it never blocks writes.
type Health struct {
	MasterCount int64 `json:"master_count"`
	IndexCount  int64 `json:"index_count"`
	InSync      bool  `json:"in_sync"`
}

// SyncReport aggregates a bulk sync; partial failures never abort it.
type SyncReport struct {
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Errors    []meddomain.ItemError `json:"errors,omitempty"`
}

type SynchronizerParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Cfg   config.Config
	Repo  meddomain.Repository
	Index Index
}

// Synchronizer converts canonical records to search documents and keeps
// the external index eventually consistent with the master store.
type Synchronizer struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         meddomain.Repository
	index        Index
	rebuildBatch int
}

func NewSynchronizer(p SynchronizerParams) *Synchronizer {
	batch := p.Cfg.RebuildBatch
	if batch <= 0 {
		batch = 200
	}
	return &Synchronizer{
		db:           p.DB,
		log:          p.Log.Named("search.synchronizer"),
		repo:         p.Repo,
		index:        p.Index,
		rebuildBatch: batch,
	}
}

// Sync upserts the current state of one record into the index. A record
// that no longer resolves is removed instead. Idempotent.
func (s *Synchronizer) Sync(ctx context.Context, canonicalID string) error {
	m, err := s.repo.FindByID(ctx, s.db, canonicalID)
	if err != nil {
		return err
	}
	if m == nil {
		return s.index.Delete(ctx, canonicalID)
	}
	return s.index.Upsert(ctx, FromMaster(m))
}

// BulkSync upserts many records, reporting per-document outcomes.
func (s *Synchronizer) BulkSync(ctx context.Context, canonicalIDs []string) SyncReport {
	var report SyncReport
	for _, id := range canonicalIDs {
		if err := s.Sync(ctx, id); err != nil {
			report.Failed++
			if len(report.Errors) < meddomain.MaxBulkErrorSample {
				report.Errors = append(report.Errors, meddomain.ItemError{Key: id, Message: err.Error()})
			}
			continue
		}
		report.Succeeded++
	}
	return report
}

// Remove deletes the document; a missing document counts as success.
func (s *Synchronizer) Remove(ctx context.Context, canonicalID string) error {
	return s.index.Delete(ctx, canonicalID)
}

// Rebuild re-upserts every master record, paging from the persisted
// cursor so a cancelled or crashed rebuild resumes where it stopped.
func (s *Synchronizer) Rebuild(ctx context.Context) (*SyncReport, error) {
	if err := s.index.EnsureIndex(ctx); err != nil {
		return nil, err
	}

	state, err := s.loadRebuildState(ctx)
	if err != nil {
		return nil, err
	}

	var report SyncReport
	page := pagination.Page{Offset: state.Offset, Limit: s.rebuildBatch}
	for {
		if err := ctx.Err(); err != nil {
			return &report, err
		}

		records, err := s.repo.List(ctx, s.db, meddomain.ListFilter{}, page)
		if err != nil {
			return &report, err
		}
		if len(records) == 0 {
			break
		}

		for i := range records {
			if err := s.index.Upsert(ctx, FromMaster(&records[i])); err != nil {
				report.Failed++
				if len(report.Errors) < meddomain.MaxBulkErrorSample {
					report.Errors = append(report.Errors, meddomain.ItemError{
						Key:     records[i].CanonicalID,
						Message: err.Error(),
					})
				}
				continue
			}
			report.Succeeded++
		}

		page = page.Next()
		if err := s.saveRebuildOffset(ctx, state, page.Offset); err != nil {
			return &report, err
		}
	}

	if err := s.finishRebuild(ctx, state); err != nil {
		return &report, err
	}
	s.log.Info("index rebuild complete",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return &report, nil
}

// Health reports drift between the master store and the index.
func (s *Synchronizer) Health(ctx context.Context) (*Health, error) {
	masterCount, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return nil, err
	}
	indexCount, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Health{
		MasterCount: masterCount,
		IndexCount:  indexCount,
		InSync:      masterCount == indexCount,
	}, nil
}

func (s *Synchronizer) loadRebuildState(ctx context.Context) (*RebuildState, error) {
	var state RebuildState
	err := s.db.WithContext(ctx).First(&state, "id = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		now := time.Now().UTC()
		state = RebuildState{ID: 1, Offset: 0, StartedAt: &now, UpdatedAt: now}
		if err := s.db.WithContext(ctx).Create(&state).Error; err != nil {
			return nil, err
		}
		return &state, nil
	}
	if err != nil {
		return nil, err
	}
	if state.CompletedAt != nil {
		// previous rebuild finished; start over
		now := time.Now().UTC()
		state.Offset = 0
		state.StartedAt = &now
		state.CompletedAt = nil
		state.UpdatedAt = now
		if err := s.db.WithContext(ctx).Save(&state).Error; err != nil {
			return nil, err
		}
	}
	return &state, nil
}

func (s *Synchronizer) saveRebuildOffset(ctx context.Context, state *RebuildState, offset int) error {
	state.Offset = offset
	state.UpdatedAt = time.Now().UTC()
	return s.db.WithContext(ctx).Save(state).Error
}

func (s *Synchronizer) finishRebuild(ctx context.Context, state *RebuildState) error {
	now := time.Now().UTC()
	state.Offset = 0
	state.CompletedAt = &now
	state.UpdatedAt = now
	return s.db.WithContext(ctx).Save(state).Error
}
