// Package migration applies the schema on startup. AutoMigrate is
// additive only; destructive changes require a manual migration.
package migration

import (
	"github.com/medikart/masterdata/internal/idmap"
	ingdomain "github.com/medikart/masterdata/internal/ingestion/domain"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	overlaydomain "github.com/medikart/masterdata/internal/overlay/domain"
	"github.com/medikart/masterdata/internal/search"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

func Run(db *gorm.DB, log *zap.Logger) error {
	log = log.Named("migration")
	err := db.AutoMigrate(
		&meddomain.MedicineMaster{},
		&meddomain.MedicineVersion{},
		&overlaydomain.StoreOverlay{},
		&ingdomain.PendingMedicine{},
		&idmap.IdMapping{},
		&search.OutboxEntry{},
		&search.RebuildState{},
	)
	if err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return err
	}
	log.Info("schema migrated")
	return nil
}
