package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"compras/internal/config"
	"compras/pkg/logger"
)

// CycleExpirer rejects quotation cycles past their deadline.
type CycleExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error)
}

// OutboxRelay delivers pending outbox messages.
type OutboxRelay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
}

// KeyCleaner removes expired idempotency keys.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Worker runs the background jobs.
type Worker struct {
	cycles      CycleExpirer
	outbox      OutboxRelay
	idempotency KeyCleaner
	expireBatch int
	now         func() time.Time
}

// Schedule registers every job on a new cron. Overlapping runs of the
// same job are skipped and panics are recovered.
func (w *Worker) Schedule(ctx context.Context, cfg config.WorkerConfig, log *logger.Logger) (*cron.Cron, error) {
	cl := cronLogger{log: log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"expire_cycles", cfg.ExpireSpec, w.ExpireCycles},
		{"relay_outbox", cfg.OutboxSpec, w.RelayOutbox},
		{"cleanup_idempotency", cfg.CleanupSpec, w.CleanupIdempotency},
	}
	for _, j := range jobs {
		run := j.run
		if _, err := c.AddFunc(j.spec, func() { run(ctx) }); err != nil {
			return nil, fmt.Errorf("job %s (%q): %w", j.name, j.spec, err)
		}
		log.Infow("job scheduled", "job", j.name, "spec", j.spec)
	}
	return c, nil
}

// ExpireCycles rejects overdue quotation cycles.
func (w *Worker) ExpireCycles(ctx context.Context) {
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	n, err := w.cycles.ExpireOverdue(ctx, now(), w.expireBatch)
	if err != nil {
		logger.Error(ctx, "expire cycles failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "expired quotation cycles", "count", n)
	}
}

// RelayOutbox publishes one outbox batch and parks messages that ran out
// of retries.
func (w *Worker) RelayOutbox(ctx context.Context) {
	n, err := w.outbox.ProcessBatch(ctx)
	if err != nil {
		logger.Error(ctx, "outbox batch failed", "error", err)
	} else if n > 0 {
		logger.Debug(ctx, "relayed outbox batch", "count", n)
	}

	moved, err := w.outbox.MoveToDLQ(ctx)
	if err != nil {
		logger.Error(ctx, "outbox dlq move failed", "error", err)
		return
	}
	if moved > 0 {
		logger.Warn(ctx, "outbox messages moved to dlq", "count", moved)
	}
}

// CleanupIdempotency deletes idempotency keys past their expiry.
func (w *Worker) CleanupIdempotency(ctx context.Context) {
	n, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		logger.Error(ctx, "idempotency cleanup failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info(ctx, "cleaned up idempotency keys", "count", n)
	}
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
