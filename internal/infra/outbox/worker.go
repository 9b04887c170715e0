package outbox

import (
	"context"
	"log/slog"
	"time"

	"venuebook/internal/pkg/clock"
	"venuebook/internal/pkg/config"
	"venuebook/internal/pkg/metrics"
	"venuebook/internal/usecase/shared"
)

const (
	retryBase = 30 * time.Second
	retryCap  = time.Hour
)

// Worker drains the outbox table and hands jobs to the broker. Delivery
// is at-least-once: a job is marked done only after a successful publish,
// and failures back off exponentially until the attempt cap.
type Worker struct {
	uow       shared.UnitOfWork
	store     JobStore
	publisher Publisher
	clock     clock.Clock
	cfg       config.BookingConfig
	logger    *slog.Logger

	done chan struct{}
}

func NewWorker(uow shared.UnitOfWork, store JobStore, publisher Publisher, clk clock.Clock, cfg config.BookingConfig, logger *slog.Logger) *Worker {
	return &Worker{
		uow:       uow,
		store:     store,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.OutboxInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.Error("outbox drain failed", "error", err.Error())
			}
		}
	}
}

// DrainOnce claims one batch and publishes it. The claim and the outcome
// writes share a transaction, so a crash between publish and commit only
// re-delivers, never loses.
func (w *Worker) DrainOnce(ctx context.Context) error {
	return w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := w.clock.Now()
		jobs, err := w.store.ClaimDue(ctx, tx, now, int32(w.cfg.OutboxBatchSize))
		if err != nil {
			return err
		}

		for _, job := range jobs {
			if err := w.publisher.Publish(ctx, job.Kind, job.Topic, job.Payload); err != nil {
				w.logger.Warn("outbox publish failed",
					"job_id", job.ID,
					"kind", job.Kind,
					"topic", job.Topic,
					"attempts", job.Attempts+1,
					"error", err.Error(),
				)
				if int(job.Attempts)+1 >= w.cfg.OutboxMaxAttempts {
					if err := w.store.MarkFailed(ctx, tx, job.ID); err != nil {
						return err
					}
					metrics.OutboxPublished.WithLabelValues("failed").Inc()
					w.logger.Error("outbox job abandoned",
						"job_id", job.ID,
						"kind", job.Kind,
						"attempts", job.Attempts+1,
					)
					continue
				}
				if err := w.store.Reschedule(ctx, tx, job.ID, now.Add(backoff(job.Attempts))); err != nil {
					return err
				}
				metrics.OutboxPublished.WithLabelValues("retried").Inc()
				continue
			}

			if err := w.store.MarkDone(ctx, tx, job.ID); err != nil {
				return err
			}
			metrics.OutboxPublished.WithLabelValues("published").Inc()
		}
		return nil
	})
}

func backoff(attempts int32) time.Duration {
	d := retryBase << attempts
	if d <= 0 || d > retryCap {
		return retryCap
	}
	return d
}
