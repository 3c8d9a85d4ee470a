package identity

import (
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(func(repo meddomain.Repository) CandidateSource { return repo }),
	fx.Provide(NewResolver),
)
