package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appctx "compras/internal/core/context"
	"compras/internal/core/tx"
	"compras/pkg/logger"
)

var tracer = otel.Tracer("compras/tx")

var _ tx.Manager = (*TxManager)(nil)

const (
	// DefaultStatementTimeout bounds every statement of a transaction.
	DefaultStatementTimeout = 30 * time.Second

	// maxAttempts covers the first try plus retries after a deadlock or
	// serialization failure.
	maxAttempts = 3
)

// TxManager runs procurement writes in transactions. The active
// transaction travels in the context, so repositories share it without
// passing it around. Nested calls join the outer transaction.
//
// Each transaction publishes the acting company and user as the
// app.company_id and app.user_id settings, which row level policies and
// audit triggers read.
type TxManager struct {
	pool             *pgxpool.Pool
	statementTimeout time.Duration
}

// NewTxManager creates a transaction manager over pool.
func NewTxManager(pool *Pool) *TxManager {
	return &TxManager{pool: pool.Pool, statementTimeout: DefaultStatementTimeout}
}

// WithStatementTimeout returns a copy of m using d; zero disables it.
func (m *TxManager) WithStatementTimeout(d time.Duration) *TxManager {
	cp := *m
	cp.statementTimeout = d
	return &cp
}

type txKey struct{}

// Tx is the transaction stored in the context.
type Tx struct {
	pgx.Tx
}

// RunInTransaction executes fn in a transaction, committing when fn
// returns nil. A top level transaction that hits a deadlock or a
// serialization failure is retried from the start.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "transaction",
		trace.WithAttributes(
			attribute.String("company_id", appctx.GetCompanyID(ctx)),
			attribute.String("user_id", appctx.GetUserID(ctx)),
		))
	defer span.End()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = m.run(ctx, fn)
		if err == nil || !retryable(err) || ctx.Err() != nil {
			break
		}
		span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		logger.Warn(ctx, "transaction conflict, retrying", "attempt", attempt, "error", err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	pgTx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := m.prepare(ctx, pgTx); err != nil {
		_ = pgTx.Rollback(context.Background())
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, &Tx{Tx: pgTx})); err != nil {
		// the caller's context may already be cancelled
		if rbErr := pgTx.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// prepare sets the statement timeout and the session identity.
func (m *TxManager) prepare(ctx context.Context, pgTx pgx.Tx) error {
	if m.statementTimeout > 0 {
		sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", m.statementTimeout.Milliseconds())
		if _, err := pgTx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}
	_, err := pgTx.Exec(ctx,
		"SELECT set_config('app.company_id', $1, true), set_config('app.user_id', $2, true)",
		appctx.GetCompanyID(ctx), appctx.GetUserID(ctx))
	if err != nil {
		return fmt.Errorf("set session identity: %w", err)
	}
	return nil
}

// retryable reports deadlocks and serialization failures.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// GetTx returns the transaction in ctx, or nil.
func (m *TxManager) GetTx(ctx context.Context) *Tx {
	if t, ok := ctx.Value(txKey{}).(*Tx); ok {
		return t
	}
	return nil
}

// Querier is the subset of pgx shared by pools and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool outside one.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t.Tx
	}
	return m.pool
}
