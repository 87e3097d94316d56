package procurement_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/domain/order"
	"compras/internal/infrastructure/storage/postgres"
)

const ordersTable = "compras.pedidos_compra"

var orderColumns = postgres.ExtractDBColumns[order.Order]()

// OrderRepo implements order.Repository.
type OrderRepo struct {
	txm *postgres.TxManager
}

var _ order.Repository = (*OrderRepo)(nil)

func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{txm: txm}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	sql, args, err := postgres.Builder().
		Insert(ordersTable).
		SetMap(postgres.InsertMap(o, orderColumns)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "insert", ordersTable)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, companyID string, orderID id.ID) (*order.Order, error) {
	sql, args, err := postgres.Builder().
		Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID, "company_id": companyID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var o order.Order
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &o, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("pedido de compra", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}
