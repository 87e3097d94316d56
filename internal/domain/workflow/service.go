package workflow

import (
	"context"
	"fmt"
	"time"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/core/tx"
	"compras/pkg/logger"
)

// Log is one row of compras.workflow_logs.
type Log struct {
	ID         id.ID          `db:"id" json:"id"`
	CompanyID  string         `db:"company_id" json:"company_id"`
	EntityType Kind           `db:"entity_type" json:"entity_type"`
	EntityID   id.ID          `db:"entity_id" json:"entity_id"`
	FromState  State          `db:"from_state" json:"from_state"`
	ToState    State          `db:"to_state" json:"to_state"`
	ActorID    string         `db:"actor_id" json:"actor_id"`
	Payload    map[string]any `db:"payload" json:"payload"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// Store persists state changes and log rows.
type Store interface {
	// UpdateState sets workflow_state (and status when non-empty) only if the
	// row is still in from. Returns a CONCURRENT_MODIFICATION error otherwise.
	UpdateState(ctx context.Context, table, companyID string, entityID id.ID, from, to State, status string) error
	AppendLog(ctx context.Context, entry *Log) error
	ListLogs(ctx context.Context, companyID string, kind Kind, entityID id.ID) ([]Log, error)
}

// TransitionRequest describes one state change.
type TransitionRequest struct {
	Kind      Kind
	CompanyID string
	EntityID  id.ID
	From      State
	To        State
	ActorID   string
	Payload   map[string]any
}

// Service applies transitions.
type Service struct {
	store     Store
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a workflow service.
func NewService(store Store, txManager tx.Manager) *Service {
	return &Service{store: store, txManager: txManager, now: time.Now}
}

// Transition validates from -> to against the kind's machine, updates the
// entity and appends the log row in one transaction.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*Log, error) {
	m, ok := MachineFor(req.Kind)
	if !ok {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown workflow %q", req.Kind))
	}
	if err := m.Enforce(req.From, req.To); err != nil {
		return nil, err
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	entry := &Log{
		ID:         id.New(),
		CompanyID:  req.CompanyID,
		EntityType: req.Kind,
		EntityID:   req.EntityID,
		FromState:  req.From,
		ToState:    req.To,
		ActorID:    req.ActorID,
		Payload:    payload,
		CreatedAt:  s.now().UTC(),
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateState(ctx, m.Table(), req.CompanyID, req.EntityID, req.From, req.To, m.Status(req.To)); err != nil {
			return err
		}
		return s.store.AppendLog(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "workflow transition",
		"entity_type", req.Kind,
		"entity_id", req.EntityID,
		"from", req.From,
		"to", req.To,
	)
	return entry, nil
}

// History returns the log rows of one entity, oldest first.
func (s *Service) History(ctx context.Context, companyID string, kind Kind, entityID id.ID) ([]Log, error) {
	return s.store.ListLogs(ctx, companyID, kind, entityID)
}
