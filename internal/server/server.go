package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medikart/masterdata/internal/config"
	"github.com/medikart/masterdata/internal/export"
	"github.com/medikart/masterdata/internal/governance"
	"github.com/medikart/masterdata/internal/idmap"
	ingdomain "github.com/medikart/masterdata/internal/ingestion/domain"
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	overlaydomain "github.com/medikart/masterdata/internal/overlay/domain"
	"github.com/medikart/masterdata/internal/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogMiddleware(log))
	r.Use(StoreContextMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, log *zap.Logger) *gin.Engine {
	return NewEngine(cfg, log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	medicineSvc   meddomain.Service
	overlaySvc    overlaydomain.Service
	ingestionSvc  ingdomain.Service
	governanceSvc *governance.Service
	idmapSvc      *idmap.Service
	exportSvc     *export.Service
	searchSvc     *search.Service
	searchSync    *search.Synchronizer
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	MedicineSvc   meddomain.Service
	OverlaySvc    overlaydomain.Service
	IngestionSvc  ingdomain.Service
	GovernanceSvc *governance.Service
	IdmapSvc      *idmap.Service
	ExportSvc     *export.Service
	SearchSvc     *search.Service
	SearchSync    *search.Synchronizer
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		medicineSvc:   p.MedicineSvc,
		overlaySvc:    p.OverlaySvc,
		ingestionSvc:  p.IngestionSvc,
		governanceSvc: p.GovernanceSvc,
		idmapSvc:      p.IdmapSvc,
		exportSvc:     p.ExportSvc,
		searchSvc:     p.SearchSvc,
		searchSync:    p.SearchSync,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/api/v1")

	medicines := v1.Group("/medicines")
	{
		medicines.POST("", s.CreateMedicine)
		medicines.GET("", s.ListMedicines)
		medicines.POST("/bulk", s.BulkCreateMedicines)
		medicines.PATCH("/bulk", s.BulkUpdateMedicines)
		medicines.GET("/:id", s.GetMedicine)
		medicines.PATCH("/:id", s.UpdateMedicine)
		medicines.DELETE("/:id", s.DiscontinueMedicine)
		medicines.POST("/:id/restore", s.RestoreMedicine)
		medicines.POST("/:id/rollback", s.RollbackMedicine)
		medicines.GET("/:id/history", s.MedicineHistory)
		medicines.GET("/:id/audit", s.AuditMedicine)
		medicines.POST("/:id/usage", s.IncrementUsage)
		medicines.POST("/:id/promote", s.PromoteMedicine)
	}

	searchGroup := v1.Group("/search")
	{
		searchGroup.GET("", s.Search)
		searchGroup.GET("/autocomplete", s.Autocomplete)
		searchGroup.GET("/composition", s.SearchByComposition)
		searchGroup.GET("/manufacturer", s.SearchByManufacturer)
		searchGroup.GET("/stats", s.SearchStats)
		searchGroup.POST("/rebuild", s.RebuildIndex)
	}

	stores := v1.Group("/store")
	{
		stores.PUT("/overlays", s.SetOverlay)
		stores.GET("/overlays/:id", s.GetOverlay)
		stores.DELETE("/overlays/:id", s.RemoveOverlay)
		stores.GET("/medicines/:id", s.GetMergedMedicine)
		stores.POST("/medicines/bulk", s.BulkMergedMedicines)
		stores.POST("/medicines/:id/stock/increment", s.IncrementStock)
		stores.POST("/medicines/:id/stock/decrement", s.DecrementStock)
		stores.GET("/low-stock", s.LowStock)
	}

	ingest := v1.Group("/ingest")
	{
		ingest.POST("", s.Ingest)
		ingest.POST("/bulk", s.BulkIngest)
		ingest.GET("/stats", s.IngestStats)
	}

	pending := v1.Group("/pending")
	{
		pending.GET("", s.ListPending)
		pending.GET("/:id", s.GetPending)
		pending.POST("/:id/reject", s.RejectPending)
	}

	governanceGroup := v1.Group("/governance")
	{
		governanceGroup.POST("/audit", s.AuditBatch)
	}

	idmapGroup := v1.Group("/idmap")
	{
		idmapGroup.PUT("", s.MapLegacyID)
		idmapGroup.GET("/:oldId", s.LookupLegacyID)
		idmapGroup.POST("/import", s.BatchImport)
	}

	exportGroup := v1.Group("/export")
	{
		exportGroup.GET("/json", s.ExportJSON)
		exportGroup.GET("/csv", s.ExportCSV)
	}
}
