package procurement_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/domain/quotation"
	"compras/internal/domain/workflow"
	"compras/internal/infrastructure/storage/postgres"
)

const (
	cyclesTable         = "compras.cotacao_ciclos"
	supplierQuotesTable = "compras.cotacao_fornecedores"
	itemQuotesTable     = "compras.cotacao_item_fornecedor"
)

var (
	cycleColumns         = postgres.ExtractDBColumns[quotation.Cycle]()
	supplierQuoteColumns = postgres.ExtractDBColumns[quotation.SupplierQuote]()
	itemQuoteColumns     = postgres.ExtractDBColumns[quotation.ItemQuote]()
)

// QuotationRepo implements quotation.Repository.
type QuotationRepo struct {
	txm *postgres.TxManager
}

var _ quotation.Repository = (*QuotationRepo)(nil)

// NewQuotationRepo creates a quotation repository.
func NewQuotationRepo(txm *postgres.TxManager) *QuotationRepo {
	return &QuotationRepo{txm: txm}
}

func (r *QuotationRepo) insert(ctx context.Context, table string, data map[string]any) error {
	sql, args, err := postgres.Builder().Insert(table).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", table)
	}
	return nil
}

// CreateCycle inserts the cycle header.
func (r *QuotationRepo) CreateCycle(ctx context.Context, c *quotation.Cycle) error {
	return r.insert(ctx, cyclesTable, postgres.InsertMap(c, cycleColumns))
}

// CreateSupplierQuote inserts one supplier row of a cycle.
func (r *QuotationRepo) CreateSupplierQuote(ctx context.Context, q *quotation.SupplierQuote) error {
	return r.insert(ctx, supplierQuotesTable, postgres.InsertMap(q, supplierQuoteColumns))
}

// CreateItemQuote inserts one offer row. Called concurrently outside any
// transaction, so each call takes its own pooled connection.
func (r *QuotationRepo) CreateItemQuote(ctx context.Context, q *quotation.ItemQuote) error {
	return r.insert(ctx, itemQuotesTable, postgres.InsertMap(q, itemQuoteColumns))
}

// GetCycle returns a cycle of the company.
func (r *QuotationRepo) GetCycle(ctx context.Context, companyID string, cycleID id.ID) (*quotation.Cycle, error) {
	sql, args, err := postgres.Builder().
		Select(cycleColumns...).
		From(cyclesTable).
		Where(squirrel.Eq{"id": cycleID, "company_id": companyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c quotation.Cycle
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("cotação", cycleID)
		}
		return nil, fmt.Errorf("get cycle: %w", err)
	}
	return &c, nil
}

// ListExpired returns open cycles past their deadline across companies.
func (r *QuotationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]quotation.Cycle, error) {
	q := postgres.Builder().
		Select(cycleColumns...).
		From(cyclesTable).
		Where(squirrel.Eq{"workflow_state": workflow.QuoteOpen}).
		Where(squirrel.Lt{"data_limite": now}).
		OrderBy("data_limite ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cycles []quotation.Cycle
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &cycles, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired cycles: %w", err)
	}
	return cycles, nil
}
