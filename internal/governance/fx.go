package governance

import (
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("governance",
	fx.Provide(NewGuard),
	fx.Provide(func(g *Guard) meddomain.MutationGuard { return g }),
	fx.Provide(New),
)
