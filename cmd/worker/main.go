// Package main is the entry point for the compras background worker.
// It expires overdue quotation cycles, relays the outbox to Redis and
// prunes idempotency keys on cron schedules.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"compras/internal/config"
	"compras/internal/domain/quotation"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/cache"
	"compras/internal/infrastructure/storage/postgres"
	"compras/internal/infrastructure/storage/postgres/procurement_repo"
	"compras/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log = log.WithComponent("worker")
	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting compras worker")

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	txm := postgres.NewTxManager(pool)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer func() { _ = rdb.Close() }()

	quotationRepo := procurement_repo.NewQuotationRepo(txm)
	wf := workflow.NewService(procurement_repo.NewWorkflowStore(txm), txm)

	w := &Worker{
		cycles:      quotation.NewCycles(quotationRepo, wf),
		outbox:      postgres.NewOutboxRelay(txm, cfg.Worker.OutboxBatch, cfg.Worker.OutboxRetries, cache.NewEventPublisher(rdb)),
		idempotency: postgres.NewIdempotencyStore(txm, cfg.Server.IdempotencyTTL),
		expireBatch: cfg.Worker.ExpireBatch,
	}

	c, err := w.Schedule(ctx, cfg.Worker, log)
	if err != nil {
		log.Fatalw("failed to schedule jobs", "error", err)
	}
	c.Start()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	// Stop returns a context that is done once running jobs finish.
	<-c.Stop().Done()
	cancel()

	log.Info("worker stopped")
}
