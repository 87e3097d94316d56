// Package procurement_repo provides PostgreSQL implementations of the
// requisition, quotation, order, approval and workflow repositories.
package procurement_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/storage/postgres"
)

const workflowLogsTable = "compras.workflow_logs"

var workflowLogColumns = postgres.ExtractDBColumns[workflow.Log]()

// WorkflowStore implements workflow.Store.
type WorkflowStore struct {
	txm *postgres.TxManager
}

var _ workflow.Store = (*WorkflowStore)(nil)

// NewWorkflowStore creates a workflow store.
func NewWorkflowStore(txm *postgres.TxManager) *WorkflowStore {
	return &WorkflowStore{txm: txm}
}

// UpdateState moves a row from one state to another. The WHERE on the
// current state makes concurrent transitions lose instead of overwrite.
func (s *WorkflowStore) UpdateState(ctx context.Context, table, companyID string, entityID id.ID, from, to workflow.State, status string) error {
	q := postgres.Builder().
		Update(table).
		Set("workflow_state", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": entityID, "company_id": companyID, "workflow_state": from})
	if status != "" {
		q = q.Set("status", status)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "update state", table)
	}
	if res.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(table, entityID).
			WithDetail("expected_state", from)
	}
	return nil
}

// AppendLog inserts one log row.
func (s *WorkflowStore) AppendLog(ctx context.Context, entry *workflow.Log) error {
	sql, args, err := postgres.Builder().
		Insert(workflowLogsTable).
		SetMap(postgres.InsertMap(entry, workflowLogColumns)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", workflowLogsTable)
	}
	return nil
}

// ListLogs returns the history of one entity, oldest first.
func (s *WorkflowStore) ListLogs(ctx context.Context, companyID string, kind workflow.Kind, entityID id.ID) ([]workflow.Log, error) {
	sql, args, err := postgres.Builder().
		Select(workflowLogColumns...).
		From(workflowLogsTable).
		Where(squirrel.Eq{"company_id": companyID, "entity_type": kind, "entity_id": entityID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var logs []workflow.Log
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &logs, sql, args...); err != nil {
		return nil, fmt.Errorf("list workflow logs: %w", err)
	}
	return logs, nil
}
