package search

import (
	"context"
	"time"

	"github.com/medikart/masterdata/internal/config"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"github.com/medikart/masterdata/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Worker drains the search outbox in the background. Rows are claimed
// with a lock TTL so work stranded by a crashed process is reclaimed;
// failures stay PENDING with the error recorded and are retried on the
// next pass. Mutation callers never wait on any of this.
type Worker struct {
	db       *gorm.DB
	log      *zap.Logger
	sync     *Synchronizer
	metrics  *metrics.SyncMetrics
	workerID string
	batch    int
	interval time.Duration
	lockTTL  time.Duration
}

type WorkerParams struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	Sync    *Synchronizer
	Metrics *metrics.SyncMetrics `optional:"true"`
}

func NewWorker(p WorkerParams) *Worker {
	return &Worker{
		db:       p.DB,
		log:      p.Log.Named("search.worker"),
		sync:     p.Sync,
		metrics:  p.Metrics,
		workerID: "sync-" + time.Now().UTC().Format("20060102-150405.000"),
		batch:    p.Cfg.SearchSyncBatch,
		interval: p.Cfg.SearchSyncInterval,
		lockTTL:  p.Cfg.SearchLockTTL,
	}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.processOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) {
	start := time.Now()
	defer w.metrics.ObserveBatch(start)

	claimed := w.claim(ctx)
	for _, entry := range claimed {
		var err error
		if entry.Op == string(meddomain.SyncDelete) {
			err = w.sync.Remove(ctx, entry.CanonicalID)
		} else {
			err = w.sync.Sync(ctx, entry.CanonicalID)
		}
		w.metrics.ObserveEntry(entry.Op, err)

		if err != nil {
			errMsg := err.Error()
			_ = w.db.WithContext(ctx).Model(&OutboxEntry{}).
				Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"attempts":   gorm.Expr("attempts + 1"),
					"last_error": &errMsg,
					"locked_at":  nil,
					"locked_by":  nil,
				}).Error
			w.log.Warn("search sync failed",
				zap.String("entry_id", entry.ID),
				zap.String("canonical_id", entry.CanonicalID),
				zap.Error(err),
			)
			continue
		}

		now := time.Now().UTC()
		_ = w.db.WithContext(ctx).Model(&OutboxEntry{}).
			Where("id = ?", entry.ID).
			Updates(map[string]interface{}{
				"status":       outboxDone,
				"attempts":     gorm.Expr("attempts + 1"),
				"processed_at": &now,
				"locked_at":    nil,
				"locked_by":    nil,
			}).Error
	}
}

func (w *Worker) claim(ctx context.Context) []OutboxEntry {
	now := time.Now().UTC()
	staleBefore := now.Add(-w.lockTTL)

	var claimed []OutboxEntry
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("status = ?", outboxPending).
			Where("locked_at IS NULL OR locked_at <= ?", staleBefore).
			Order("id ASC").
			Limit(w.batch)
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &w.workerID
			if err := tx.Model(&OutboxEntry{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"locked_at": claimed[i].LockedAt,
					"locked_by": claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		w.metrics.ObserveClaimFailure()
		w.log.Warn("outbox claim failed", zap.Error(err))
		return nil
	}
	return claimed
}

func registerWorker(lc fx.Lifecycle, w *Worker) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go w.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
