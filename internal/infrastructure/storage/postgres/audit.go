package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "compras/internal/core/context"
	"compras/internal/core/id"
)

const auditTable = "compras.auditoria"

// AuditAction is the kind of audited operation.
type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionUpdate   AuditAction = "update"
	AuditActionDelete   AuditAction = "delete"
	AuditActionSnapshot AuditAction = "snapshot"
)

// CompressionAlgo is how Changes are stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of compras.auditoria.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	CompanyID         string          `db:"company_id" json:"company_id"`
	EntityType        string          `db:"entity_type" json:"entity_type"`
	EntityID          id.ID           `db:"entity_id" json:"entity_id"`
	Action            AuditAction     `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"user_id"`
	UserEmail         string          `db:"user_email" json:"user_email"`
	Changes           json.RawMessage `db:"changes" json:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

var auditColumns = ExtractDBColumns[AuditEntry]()

// AuditService writes audit rows. Changes larger than the threshold are
// stored zstd-compressed; comparison snapshots usually are.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
	now               func() time.Time
}

// NewAuditService creates an audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
		now:               time.Now,
	}, nil
}

// prepare fills ids, actor and timestamp, and compresses large changes.
func (s *AuditService) prepare(ctx context.Context, entry *AuditEntry) {
	if user := appctx.GetUser(ctx); user != nil {
		if entry.UserID == "" {
			entry.UserID = user.UserID
		}
		if entry.UserEmail == "" {
			entry.UserEmail = user.Email
		}
		if entry.CompanyID == "" {
			entry.CompanyID = user.CompanyID
		}
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
}

// Log records an audit entry in the current transaction, if any.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	s.prepare(ctx, &entry)

	sql, args, err := Builder().
		Insert(auditTable).
		SetMap(InsertMap(&entry, auditColumns)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return MapError(err, "insert", auditTable)
	}
	return nil
}

// LogChange records a field diff.
func (s *AuditService) LogChange(ctx context.Context, entityType string, entityID id.ID, action AuditAction, changes map[string]any) error {
	data, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    data,
	})
}

// RecordWrite logs a write made through the generic entity layer: the full
// row for inserts and deletes, the field diff for updates.
func (s *AuditService) RecordWrite(ctx context.Context, table string, recordID id.ID, before, after map[string]any) error {
	switch {
	case before == nil:
		return s.LogChange(ctx, table, recordID, AuditActionCreate, after)
	case after == nil:
		return s.LogChange(ctx, table, recordID, AuditActionDelete, before)
	}
	changes := Diff(before, after)
	if len(changes) == 0 {
		return nil
	}
	return s.LogChange(ctx, table, recordID, AuditActionUpdate, changes)
}

// Snapshot stores payload as it is now. Submitted quotations keep the full
// comparison this way.
func (s *AuditService) Snapshot(ctx context.Context, entityType string, entityID id.ID, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     AuditActionSnapshot,
		Changes:    data,
	})
}

// History returns the newest entries of an entity of the company,
// decompressed.
func (s *AuditService) History(ctx context.Context, companyID, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	q := Builder().
		Select(auditColumns...).
		From(auditTable).
		Where("company_id = ? AND entity_type = ? AND entity_id = ?", companyID, entityType, entityID).
		OrderBy("created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []AuditEntry
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	for i := range entries {
		if err := s.inflate(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *AuditService) inflate(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes of %s: %w", e.ID, err)
	}
	e.Changes = raw
	e.ChangesCompressed = nil
	return nil
}

// Diff returns {"field": {"old": x, "new": y}} for every field that differs
// between two states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}
