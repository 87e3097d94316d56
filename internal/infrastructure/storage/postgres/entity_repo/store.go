// Package entity_repo is the PostgreSQL store behind the generic entity layer.
// Tables come from the registry allow-list and columns from
// information_schema, so every identifier reaching SQL is known.
package entity_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/domain"
	"compras/internal/domain/entity"
	"compras/internal/infrastructure/storage/postgres"
)

// Store implements entity.Store.
type Store struct {
	txm *postgres.TxManager
}

var _ entity.Store = (*Store)(nil)

// NewStore creates an entity store.
func NewStore(txm *postgres.TxManager) *Store {
	return &Store{txm: txm}
}

func tableName(t entity.Table) string {
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// Columns lists the columns of t in ordinal order.
func (s *Store) Columns(ctx context.Context, t entity.Table) ([]string, error) {
	sql, args, err := postgres.Builder().
		Select("column_name").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_schema": t.Schema, "table_name": t.Name}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var cols []string
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &cols, sql, args...); err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return cols, nil
}

// List returns a page of rows.
func (s *Store) List(ctx context.Context, q entity.Query) (domain.ListResult[entity.Record], error) {
	out := domain.ListResult[entity.Record]{Limit: q.Filter.Limit, Offset: q.Filter.Offset}
	allowed := postgres.NewColumns(q.Columns...)

	base := postgres.Builder().Select().From(tableName(q.Table))
	if q.CompanyID != "" {
		base = base.Where(squirrel.Eq{"company_id": q.CompanyID})
	}
	if len(q.Filter.IDs) > 0 {
		base = base.Where(squirrel.Eq{"id": q.Filter.IDs})
	}
	base, err := postgres.ApplyFilters(base, q.Filter.AdvancedFilters, allowed)
	if err != nil {
		return out, err
	}

	def := ""
	if allowed.Has("id") {
		def = "id DESC"
	}
	orderBy, err := postgres.ParseOrderBy(q.Filter.OrderBy, allowed, def)
	if err != nil {
		return out, err
	}

	querier := s.txm.GetQuerier(ctx)

	countSQL, countArgs, err := base.Columns("COUNT(*)").ToSql()
	if err != nil {
		return out, fmt.Errorf("build count: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&out.TotalCount); err != nil {
		return out, fmt.Errorf("count %s: %w", q.Table.QualifiedName(), err)
	}

	sel := base.Columns("*")
	if orderBy != "" {
		sel = sel.OrderBy(orderBy)
	}
	sql, args, err := postgres.Paginate(sel, q.Filter.Limit, q.Filter.Offset).ToSql()
	if err != nil {
		return out, fmt.Errorf("build query: %w", err)
	}

	out.Items = []entity.Record{}
	if err := pgxscan.Select(ctx, querier, &out.Items, sql, args...); err != nil {
		return out, fmt.Errorf("list %s: %w", q.Table.QualifiedName(), err)
	}
	return out, nil
}

func where(companyID string, recordID id.ID) squirrel.Eq {
	cond := squirrel.Eq{"id": recordID}
	if companyID != "" {
		cond["company_id"] = companyID
	}
	return cond
}

// Get returns one row.
func (s *Store) Get(ctx context.Context, t entity.Table, companyID string, recordID id.ID) (entity.Record, error) {
	sql, args, err := postgres.Builder().
		Select("*").
		From(tableName(t)).
		Where(where(companyID, recordID)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rec := entity.Record{}
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.QualifiedName(), recordID)
		}
		return nil, fmt.Errorf("get %s: %w", t.QualifiedName(), err)
	}
	return rec, nil
}

// Insert stores data and returns the row as written.
func (s *Store) Insert(ctx context.Context, t entity.Table, data entity.Record) (entity.Record, error) {
	sql, args, err := postgres.Builder().
		Insert(tableName(t)).
		SetMap(data).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	rec := entity.Record{}
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &rec, sql, args...); err != nil {
		return nil, postgres.MapError(err, "insert", t.QualifiedName())
	}
	return rec, nil
}

// Update sets data on one row and returns it.
func (s *Store) Update(ctx context.Context, t entity.Table, companyID string, recordID id.ID, data entity.Record) (entity.Record, error) {
	sql, args, err := postgres.Builder().
		Update(tableName(t)).
		SetMap(data).
		Where(where(companyID, recordID)).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	rec := entity.Record{}
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.QualifiedName(), recordID)
		}
		return nil, postgres.MapError(err, "update", t.QualifiedName())
	}
	return rec, nil
}

// Delete removes one row. Rows still referenced elsewhere yield a CONFLICT.
func (s *Store) Delete(ctx context.Context, t entity.Table, companyID string, recordID id.ID) error {
	sql, args, err := postgres.Builder().
		Delete(tableName(t)).
		Where(where(companyID, recordID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := s.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "delete", t.QualifiedName())
	}
	if res.RowsAffected() == 0 {
		return apperror.NewNotFound(t.QualifiedName(), recordID)
	}
	return nil
}
