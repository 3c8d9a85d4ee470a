package export

import (
	"go.uber.org/fx"
)

var Module = fx.Module("export",
	fx.Provide(New),
)
