package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/medikart/masterdata/internal/config"
	"github.com/medikart/masterdata/internal/export"
	"github.com/medikart/masterdata/internal/governance"
	"github.com/medikart/masterdata/internal/identity"
	"github.com/medikart/masterdata/internal/idmap"
	"github.com/medikart/masterdata/internal/ingestion"
	"github.com/medikart/masterdata/internal/logger"
	"github.com/medikart/masterdata/internal/medicine"
	"github.com/medikart/masterdata/internal/migration"
	"github.com/medikart/masterdata/internal/observability/metrics"
	"github.com/medikart/masterdata/internal/overlay"
	"github.com/medikart/masterdata/internal/search"
	"github.com/medikart/masterdata/internal/server"
	"github.com/medikart/masterdata/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		metrics.Module,

		// functional domains
		medicine.Module,
		identity.Module,
		overlay.Module,
		ingestion.Module,
		governance.Module,
		idmap.Module,
		search.Module,
		export.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("SNOWFLAKE_NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
