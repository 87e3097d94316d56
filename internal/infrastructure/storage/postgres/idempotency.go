package postgres

import (
	"context"
	"fmt"
	"time"

	"compras/internal/core/apperror"
)

const idempotencyTable = "compras.idempotency_keys"

// IdempotencyStatus is the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
)

// IdempotencyRecord is one row of compras.idempotency_keys.
type IdempotencyRecord struct {
	Key         string            `db:"idempotency_key"`
	UserID      string            `db:"user_id"`
	Operation   string            `db:"operation"`
	Status      IdempotencyStatus `db:"status"`
	RequestHash string            `db:"request_hash"` // SHA256 of request body
	Response    []byte            `db:"response"`
	StatusCode  *int              `db:"response_status"`
	ContentType *string           `db:"response_content_type"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
	ExpiresAt   time.Time         `db:"expires_at"`
}

// IdempotencyReplay is a stored HTTP response.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// staleAfter is how long a pending key may sit before another request may
// take it over.
const staleAfter = time.Minute

// IdempotencyStore manages idempotency keys.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a store whose keys live for ttl.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{txManager: txManager, ttl: ttl, now: time.Now}
}

// AcquireKey claims key for a request.
//   - (nil, nil): claimed, the request should run
//   - (replay, nil): already completed, replay the stored response
//   - (nil, CONFLICT): in flight elsewhere, or reused for another request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now().UTC()
	querier := s.txManager.GetQuerier(ctx)

	var (
		rec     IdempotencyRecord
		claimed bool
	)
	err := querier.QueryRow(ctx, `
		INSERT INTO `+idempotencyTable+` (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET updated_at = `+idempotencyTable+`.updated_at
		RETURNING user_id, operation, status, request_hash, response, response_status, response_content_type, updated_at, (xmax = 0)
	`, key, userID, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&rec.UserID, &rec.Operation, &rec.Status, &rec.RequestHash,
		&rec.Response, &rec.StatusCode, &rec.ContentType, &rec.UpdatedAt, &claimed,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	if rec.UserID != userID || rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewConflict("chave de idempotência já usada para outra requisição").
			WithDetail("key", key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case IdempotencyStatusSuccess:
		replay := &IdempotencyReplay{StatusCode: 200, ContentType: "application/json", Body: rec.Response}
		if rec.StatusCode != nil {
			replay.StatusCode = *rec.StatusCode
		}
		if rec.ContentType != nil && *rec.ContentType != "" {
			replay.ContentType = *rec.ContentType
		}
		return replay, nil
	case IdempotencyStatusPending:
		if now.Sub(rec.UpdatedAt) > staleAfter {
			res, err := querier.Exec(ctx, `
				UPDATE `+idempotencyTable+` SET updated_at = $1
				WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
			`, now, key, IdempotencyStatusPending, rec.UpdatedAt)
			if err != nil {
				return nil, fmt.Errorf("reclaim stale key: %w", err)
			}
			if res.RowsAffected() == 1 {
				return nil, nil
			}
		}
	}
	return nil, apperror.NewConflict("requisição com a mesma chave de idempotência em andamento").
		WithDetail("key", key)
}

// CompleteKey stores the response of a claimed key.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	sql, args, err := Builder().
		Update(idempotencyTable).
		Set("status", IdempotencyStatusSuccess).
		Set("response", body).
		Set("response_status", statusCode).
		Set("response_content_type", contentType).
		Set("updated_at", s.now().UTC()).
		Where("idempotency_key = ?", key).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	return err
}

// ReleaseKey forgets a claimed key so the client may retry with it.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	_, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM `+idempotencyTable+` WHERE idempotency_key = $1 AND status = $2`,
		key, IdempotencyStatusPending)
	return err
}

// CleanupExpired removes expired keys.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		`DELETE FROM `+idempotencyTable+` WHERE expires_at < $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return res.RowsAffected(), nil
}
