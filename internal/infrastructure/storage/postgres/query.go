package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"compras/internal/core/apperror"
	"compras/internal/domain/filter"
)

// Builder returns a squirrel builder with PostgreSQL placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Columns is a column allow-list.
type Columns map[string]struct{}

// NewColumns builds an allow-list.
func NewColumns(cols ...string) Columns {
	c := make(Columns, len(cols))
	for _, col := range cols {
		c[col] = struct{}{}
	}
	return c
}

// Has reports whether col is allowed.
func (c Columns) Has(col string) bool {
	_, ok := c[col]
	return ok
}

// ParseOrderBy turns "field" or "-field" into an ORDER BY clause. Only
// allowed columns are accepted; an empty orderBy yields def.
func ParseOrderBy(orderBy string, allowed Columns, def string) (string, error) {
	if orderBy == "" {
		return def, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	// "field desc" as sent by the web client
	if name, dir, ok := strings.Cut(strings.TrimSpace(field), " "); ok {
		field = name
		switch strings.ToUpper(strings.TrimSpace(dir)) {
		case "DESC":
			direction = "DESC"
		case "ASC":
			direction = "ASC"
		default:
			return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
		}
	}

	field = strings.TrimSpace(field)
	if field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}
	if !allowed.Has(field) {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy).WithDetail("field", field)
	}
	return field + " " + direction, nil
}

// ApplyFilters adds field conditions to q. Fields outside allowed are rejected.
func ApplyFilters(q squirrel.SelectBuilder, filters []filter.Item, allowed Columns) (squirrel.SelectBuilder, error) {
	for _, item := range filters {
		if !allowed.Has(item.Field) {
			return q, apperror.NewValidation(fmt.Sprintf("invalid filter column: %s", item.Field)).
				WithDetail("field", item.Field)
		}

		switch item.Operator {
		case filter.Equal, "":
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotEqual:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.LessOrEqual:
			q = q.Where(squirrel.LtOrEq{item.Field: item.Value})
		case filter.GreaterOrEqual:
			q = q.Where(squirrel.GtOrEq{item.Field: item.Value})
		case filter.Less:
			q = q.Where(squirrel.Lt{item.Field: item.Value})
		case filter.Greater:
			q = q.Where(squirrel.Gt{item.Field: item.Value})
		case filter.InList:
			q = q.Where(squirrel.Eq{item.Field: item.Value})
		case filter.NotInList:
			q = q.Where(squirrel.NotEq{item.Field: item.Value})
		case filter.IsNull:
			q = q.Where(squirrel.Eq{item.Field: nil})
		case filter.IsNotNull:
			q = q.Where(squirrel.NotEq{item.Field: nil})
		case filter.Contains:
			q = q.Where(squirrel.ILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		case filter.NotContains:
			q = q.Where(squirrel.NotILike{item.Field: fmt.Sprintf("%%%v%%", item.Value)})
		default:
			return q, apperror.NewValidation(fmt.Sprintf("invalid filter operator: %s", item.Operator)).
				WithDetail("operator", item.Operator)
		}
	}
	return q, nil
}

// Paginate applies limit and offset when positive.
func Paginate(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

// Postgres error codes mapped to application errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapError converts constraint violations to application errors and wraps
// anything else with op.
func MapError(err error, op, entity string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.NewConflict(fmt.Sprintf("registro duplicado em %s", entity)).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgForeignKeyViolation:
			return apperror.NewConflict("registro referenciado por outros documentos").
				WithDetail("entity", entity).
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}
	return fmt.Errorf("%s %s: %w", op, entity, err)
}
