package search

import (
	meddomain "github.com/medikart/masterdata/internal/medicine/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("search",
	fx.Provide(NewOutbox),
	fx.Provide(func(o *Outbox) meddomain.SyncEnqueuer { return o }),
	fx.Provide(NewElastic),
	fx.Provide(func(e *Elastic) Index { return e }),
	fx.Provide(NewSynchronizer),
	fx.Provide(NewService),
	fx.Provide(NewWorker),
	fx.Invoke(registerWorker),
)
