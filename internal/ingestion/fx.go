package ingestion

import (
	"github.com/medikart/masterdata/internal/ingestion/repository"
	"github.com/medikart/masterdata/internal/ingestion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ingestion.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
