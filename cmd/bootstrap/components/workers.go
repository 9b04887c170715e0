package components

import (
	"context"

	"venuebook/internal/infra/outbox"
	"venuebook/internal/infra/promotion"
	"venuebook/internal/pkg/config"
	"venuebook/internal/usecase/shared"

	"go.uber.org/fx"
)

// WorkerModule wires the promotion engine, the offer sweep, and the
// outbox drain. The workers stop with the fx lifecycle so in-flight
// batches finish before shutdown.
var WorkerModule = fx.Module("workers",
	fx.Provide(
		fx.Annotate(
			promotion.NewRedisLocker,
			fx.As(new(promotion.Locker)),
		),
		promotion.NewEngine,
		func(engine *promotion.Engine) shared.Promoter { return engine },
		promotion.NewSweeper,
		outbox.NewJobStore,
		NewPublisher,
		outbox.NewWorker,
	),
	fx.Invoke(startWorkers),
)

func NewPublisher(cfg config.Config) outbox.Publisher {
	return outbox.NewAMQPPublisher(cfg.Broker)
}

func startWorkers(lc fx.Lifecycle, sweeper *promotion.Sweeper, worker *outbox.Worker) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sweeper.Start(context.Background())
			worker.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			sweeper.Stop()
			worker.Stop()
			return nil
		},
	})
}
