// Package main is the entry point for the compras API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"compras/internal/config"
	corenumerator "compras/internal/core/numerator"
	"compras/internal/domain/approval"
	"compras/internal/domain/attachment"
	"compras/internal/domain/auth"
	"compras/internal/domain/entity"
	"compras/internal/domain/order"
	"compras/internal/domain/quotation"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/cache"
	v1 "compras/internal/infrastructure/http/v1"
	"compras/internal/infrastructure/http/v1/handlers"
	"compras/internal/infrastructure/numerator"
	"compras/internal/infrastructure/objectstore"
	"compras/internal/infrastructure/storage/postgres"
	"compras/internal/infrastructure/storage/postgres/entity_repo"
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

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting compras server")

	// --- Postgres ---
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	txm := postgres.NewTxManager(pool)

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnw("redis unavailable, drafts will fail until it recovers", "error", err)
	}

	// --- Repositories ---
	workflowStore := procurement_repo.NewWorkflowStore(txm)
	requisitionRepo := procurement_repo.NewRequisitionRepo(txm)
	quotationRepo := procurement_repo.NewQuotationRepo(txm)
	orderRepo := procurement_repo.NewOrderRepo(txm)
	approvalRepo := procurement_repo.NewApprovalRepo(txm)

	audit, err := postgres.NewAuditService(txm)
	if err != nil {
		log.Fatalw("failed to initialize audit", "error", err)
	}
	// Orders tolerate gaps; requisition and quote numbers do not.
	gen := numerator.New(pool, numerator.WithRange(corenumerator.PrefixPurchaseOrder, 20))

	// --- Domain services ---
	wf := workflow.NewService(workflowStore, txm)
	requisitions := requisition.NewService(requisitionRepo, wf, gen, txm)
	orders := order.NewService(orderRepo, wf, gen)
	submitter := quotation.NewSubmitter(
		quotationRepo,
		requisitions,
		requisitions,
		gen,
		postgres.NewOutboxPublisher(txm),
		audit,
		txm,
		cfg.Quote.FanOut,
	)
	drafts := quotation.NewDrafts(cache.NewDraftStore(rdb), cfg.Quote.DraftTTL)
	cycles := quotation.NewCycles(quotationRepo, wf)

	entities := entity.NewService(entity.DefaultRegistry(), entity_repo.NewStore(txm))
	entities.SetAuditor(audit)

	// Approval configs are cached and invalidated by NOTIFY; the same
	// listener drops cached table columns after migrations.
	configCache := cache.NewConfigCache(pool.Unwrap(), approvalRepo)
	configCache.OnInvalidation(func(channel, payload string) {
		if channel == cache.ChannelSchema {
			entities.InvalidateColumns(payload)
		}
	})
	if err := configCache.Start(ctx); err != nil {
		log.Fatalw("failed to start config cache", "error", err)
	}
	defer configCache.Stop()

	router, err := approval.NewRouter()
	if err != nil {
		log.Fatalw("failed to compile approval rules", "error", err)
	}
	approvals := approval.NewService(configCache, router)

	healthChecks := map[string]handlers.Pinger{
		"postgres": handlers.PingerFunc(pool.Ping),
		"redis": handlers.PingerFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	}

	// --- Attachments (optional) ---
	var attachments *attachment.Service
	if cfg.MinIO.Endpoint != "" {
		store, err := objectstore.New(ctx, cfg.MinIO)
		if err != nil {
			log.Fatalw("failed to connect to object storage", "error", err)
		}
		attachments = attachment.NewService(store)
		healthChecks["minio"] = store
	} else {
		log.Warn("minio.endpoint not set, attachments disabled")
	}

	jwtCfg := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtCfg.Issuer = cfg.JWT.Issuer

	// --- Router ---
	engine := v1.NewRouter(v1.RouterConfig{
		Mode:           cfg.Server.Mode,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         log,
		JWTValidator:   auth.NewJWTService(jwtCfg),
		Idempotency:    postgres.NewIdempotencyStore(txm, cfg.Server.IdempotencyTTL),
		HealthChecks:   healthChecks,
		Workflow:       wf,
		Requisitions:   requisitions,
		Orders:         orders,
		Submitter:      submitter,
		Drafts:         drafts,
		Cycles:         cycles,
		Audit:          audit,
		Entities:       entities,
		Attachments:    attachments,
		Approvals:      approvals,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Server.Port, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
