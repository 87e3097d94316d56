package procurement_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"compras/internal/domain/approval"
	"compras/internal/infrastructure/storage/postgres"
)

const approvalConfigsTable = "public.configuracoes_aprovacao_unificada"

var approvalConfigColumns = postgres.ExtractDBColumns[approval.Config]()

// ApprovalRepo implements approval.Repository. Approvers are stored as a
// jsonb array and decoded by pgx.
type ApprovalRepo struct {
	txm *postgres.TxManager
}

var _ approval.Repository = (*ApprovalRepo)(nil)

func NewApprovalRepo(txm *postgres.TxManager) *ApprovalRepo {
	return &ApprovalRepo{txm: txm}
}

// ListActive returns the active configs of a company for a process type,
// lowest level first.
func (r *ApprovalRepo) ListActive(ctx context.Context, companyID string, process approval.ProcessType) ([]approval.Config, error) {
	sql, args, err := postgres.Builder().
		Select(approvalConfigColumns...).
		From(approvalConfigsTable).
		Where(squirrel.Eq{"company_id": companyID, "processo_tipo": process, "ativo": true}).
		OrderBy("nivel_aprovacao ASC", "created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var configs []approval.Config
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &configs, sql, args...); err != nil {
		return nil, fmt.Errorf("list approval configs: %w", err)
	}
	return configs, nil
}
