package procurement_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/domain"
	"compras/internal/domain/requisition"
	"compras/internal/infrastructure/storage/postgres"
)

const (
	requisitionsTable     = "compras.requisicoes_compra"
	requisitionItemsTable = "compras.requisicao_itens"
	materialsTable        = "almoxarifado.materiais_equipamentos"
)

var (
	requisitionColumns     = postgres.ExtractDBColumns[requisition.Requisition]()
	requisitionItemColumns = postgres.ExtractDBColumns[requisition.Item]()

	requisitionSortable = postgres.NewColumns(
		"id", "numero_requisicao", "created_at", "updated_at", "data_necessidade",
		"prioridade", "workflow_state", "valor_total_estimado",
	)
	requisitionFilterable = postgres.NewColumns(requisitionColumns...)
)

// RequisitionRepo implements requisition.Repository.
type RequisitionRepo struct {
	txm *postgres.TxManager
}

var _ requisition.Repository = (*RequisitionRepo)(nil)

// NewRequisitionRepo creates a requisition repository.
func NewRequisitionRepo(txm *postgres.TxManager) *RequisitionRepo {
	return &RequisitionRepo{txm: txm}
}

func (r *RequisitionRepo) insert(ctx context.Context, table string, data map[string]any) error {
	sql, args, err := postgres.Builder().Insert(table).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", table)
	}
	return nil
}

// Create inserts the requisition header.
func (r *RequisitionRepo) Create(ctx context.Context, req *requisition.Requisition) error {
	return r.insert(ctx, requisitionsTable, postgres.InsertMap(req, requisitionColumns))
}

// CreateItem inserts one line.
func (r *RequisitionRepo) CreateItem(ctx context.Context, item *requisition.Item) error {
	return r.insert(ctx, requisitionItemsTable, postgres.InsertMap(item, requisitionItemColumns))
}

// GetByID returns a requisition header of the company.
func (r *RequisitionRepo) GetByID(ctx context.Context, companyID string, reqID id.ID) (*requisition.Requisition, error) {
	sql, args, err := postgres.Builder().
		Select(requisitionColumns...).
		From(requisitionsTable).
		Where(squirrel.Eq{"id": reqID, "company_id": companyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var req requisition.Requisition
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &req, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("requisição", reqID)
		}
		return nil, fmt.Errorf("get requisition: %w", err)
	}
	return &req, nil
}

// GetByIDs returns the headers found among ids. Missing ids are left out.
func (r *RequisitionRepo) GetByIDs(ctx context.Context, companyID string, ids []id.ID) ([]*requisition.Requisition, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql, args, err := postgres.Builder().
		Select(requisitionColumns...).
		From(requisitionsTable).
		Where(squirrel.Eq{"id": ids, "company_id": companyID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reqs []*requisition.Requisition
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &reqs, sql, args...); err != nil {
		return nil, fmt.Errorf("get requisitions: %w", err)
	}
	return reqs, nil
}

// itemRow carries the joined material columns.
type itemRow struct {
	requisition.Item
	MaterialCode *string `db:"material_codigo"`
	MaterialName *string `db:"material_nome"`
}

// GetItems returns the lines of reqIDs with material code and name.
func (r *RequisitionRepo) GetItems(ctx context.Context, reqIDs []id.ID) ([]requisition.Item, error) {
	if len(reqIDs) == 0 {
		return nil, nil
	}

	cols := make([]string, 0, len(requisitionItemColumns)+2)
	for _, c := range requisitionItemColumns {
		cols = append(cols, "i."+c)
	}
	cols = append(cols, "m.codigo AS material_codigo", "m.nome AS material_nome")

	sql, args, err := postgres.Builder().
		Select(cols...).
		From(requisitionItemsTable + " i").
		LeftJoin(materialsTable + " m ON m.id::text = i.material_id").
		Where(squirrel.Eq{"i.requisicao_id": reqIDs}).
		OrderBy("i.requisicao_id", "i.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("get requisition items: %w", err)
	}

	items := make([]requisition.Item, len(rows))
	for i, row := range rows {
		items[i] = row.Item
		items[i].MaterialCode = row.MaterialCode
		if row.MaterialName != nil {
			items[i].MaterialName = *row.MaterialName
		}
	}
	return items, nil
}

// List returns a page of requisitions of the company.
func (r *RequisitionRepo) List(ctx context.Context, companyID string, f requisition.ListFilter) (domain.ListResult[*requisition.Requisition], error) {
	out := domain.ListResult[*requisition.Requisition]{Limit: f.Limit, Offset: f.Offset}

	base := postgres.Builder().
		Select().
		From(requisitionsTable).
		Where(squirrel.Eq{"company_id": companyID})
	if len(f.IDs) > 0 {
		base = base.Where(squirrel.Eq{"id": f.IDs})
	}
	if len(f.States) > 0 {
		base = base.Where(squirrel.Eq{"workflow_state": f.States})
	}
	if f.Type != nil {
		base = base.Where(squirrel.Eq{"tipo_requisicao": *f.Type})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		base = base.Where(squirrel.Or{
			squirrel.ILike{"numero_requisicao": pattern},
			squirrel.ILike{"justificativa": pattern},
			squirrel.ILike{"observacoes": pattern},
		})
	}
	base, err := postgres.ApplyFilters(base, f.AdvancedFilters, requisitionFilterable)
	if err != nil {
		return out, err
	}

	orderBy, err := postgres.ParseOrderBy(f.OrderBy, requisitionSortable, "id DESC")
	if err != nil {
		return out, err
	}

	querier := r.txm.GetQuerier(ctx)

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return out, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&out.TotalCount); err != nil {
		return out, fmt.Errorf("count requisitions: %w", err)
	}

	sql, args, err := postgres.Paginate(base.Columns(requisitionColumns...).OrderBy(orderBy), f.Limit, f.Offset).ToSql()
	if err != nil {
		return out, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &out.Items, sql, args...); err != nil {
		return out, fmt.Errorf("list requisitions: %w", err)
	}
	return out, nil
}
