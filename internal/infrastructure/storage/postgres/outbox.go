package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"compras/internal/core/id"
	"compras/internal/domain"
	"compras/pkg/logger"
)

const (
	outboxTable    = "compras.outbox"
	outboxDLQTable = "compras.outbox_dlq"
)

// OutboxStatus is the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is one row of compras.outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"` // e.g. "cotacao"
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"` // e.g. "quotation.submitted"
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var outboxColumns = ExtractDBColumns[OutboxMessage]()

// OutboxPublisher writes domain events to the outbox table.
type OutboxPublisher struct {
	txManager *TxManager
	now       func() time.Time
}

var _ domain.EventPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates an outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager, now: time.Now}
}

func (p *OutboxPublisher) message(event domain.Event) (*OutboxMessage, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return &OutboxMessage{
		ID:            id.New(),
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		Status:        OutboxStatusPending,
		CreatedAt:     p.now().UTC(),
	}, nil
}

// Publish writes an event within the current transaction. Calling it
// outside a transaction is an error: the event must commit with its change.
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	msg, err := p.message(event)
	if err != nil {
		return err
	}

	sql, args, err := Builder().Insert(outboxTable).SetMap(InsertMap(msg, outboxColumns)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// PublishBatch writes several events in one round trip.
func (p *OutboxPublisher) PublishBatch(ctx context.Context, events []domain.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	batch := &pgx.Batch{}
	for _, event := range events {
		msg, err := p.message(event)
		if err != nil {
			return err
		}
		sql, args, err := Builder().Insert(outboxTable).SetMap(InsertMap(msg, outboxColumns)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		batch.Queue(sql, args...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert outbox message: %w", err)
		}
	}
	return nil
}

// OutboxHandler delivers one message. An error schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error {
	return f(ctx, msg)
}

// OutboxRelay delivers pending outbox messages. Rows are locked with
// FOR UPDATE SKIP LOCKED for the duration of one batch, so several workers
// can run side by side.
type OutboxRelay struct {
	txManager  *TxManager
	batchSize  int
	maxRetries int
	handler    OutboxHandler
	now        func() time.Time
}

// NewOutboxRelay creates a relay. Messages failing maxRetries times are
// marked failed and left for MoveToDLQ.
func NewOutboxRelay(txManager *TxManager, batchSize, maxRetries int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxRelay{
		txManager:  txManager,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		handler:    handler,
		now:        time.Now,
	}
}

// ProcessBatch delivers one batch and returns how many messages were
// published.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := Builder().
			Select(outboxColumns...).
			From(outboxTable).
			Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)", OutboxStatusPending, r.now().UTC()).
			OrderBy("created_at").
			Limit(uint64(r.batchSize)).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, sql, args...); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox message not delivered",
					"id", msg.ID,
					"event_type", msg.EventType,
					"retry", msg.RetryCount+1,
					"error", err)
				continue
			}
			processed++
		}
		return nil
	})
	return processed, err
}

// processMessage hands msg to the handler and records the outcome. Handler
// failures back off linearly, one minute per attempt.
func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	querier := r.txManager.GetQuerier(ctx)
	now := r.now().UTC()

	if err := r.handler.Handle(ctx, msg); err != nil {
		status := OutboxStatusPending
		if msg.RetryCount+1 >= r.maxRetries {
			status = OutboxStatusFailed
		}
		next := now.Add(time.Duration(msg.RetryCount+1) * time.Minute)

		sql, args, buildErr := Builder().
			Update(outboxTable).
			Set("retry_count", msg.RetryCount+1).
			Set("last_error", err.Error()).
			Set("next_retry_at", next).
			Set("status", status).
			Where("id = ?", msg.ID).
			ToSql()
		if buildErr != nil {
			return fmt.Errorf("build update: %w", buildErr)
		}
		if _, updateErr := querier.Exec(ctx, sql, args...); updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	sql, args, err := Builder().
		Update(outboxTable).
		Set("status", OutboxStatusPublished).
		Set("published_at", now).
		Where("id = ?", msg.ID).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	_, err = querier.Exec(ctx, sql, args...)
	return err
}

// MoveToDLQ moves failed messages to the dead letter table.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM `+outboxTable+`
			WHERE status = $1
			RETURNING *
		)
		INSERT INTO `+outboxDLQTable+`
		SELECT *, NOW() AS failed_at, last_error AS failure_reason FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return result.RowsAffected(), nil
}
