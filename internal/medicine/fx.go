package medicine

import (
	"github.com/medikart/masterdata/internal/medicine/repository"
	"github.com/medikart/masterdata/internal/medicine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("medicine.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
