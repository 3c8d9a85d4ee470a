package overlay

import (
	"github.com/medikart/masterdata/internal/overlay/repository"
	"github.com/medikart/masterdata/internal/overlay/service"
	"go.uber.org/fx"
)

var Module = fx.Module("overlay.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
