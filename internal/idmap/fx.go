package idmap

import (
	"go.uber.org/fx"
)

var Module = fx.Module("idmap",
	fx.Provide(New),
)
