package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	"compras/internal/domain/filter"
)

func TestApplyFilters_Operators(t *testing.T) {
	allowed := NewColumns("id", "status", "valor_total")

	tests := []struct {
		name     string
		item     filter.Item
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "Equal",
			item:     filter.Eq("status", "aprovada"),
			wantSQL:  "SELECT id FROM t WHERE status = $1",
			wantArgs: []any{"aprovada"},
		},
		{
			name:     "Greater",
			item:     filter.Item{Field: "valor_total", Operator: filter.Greater, Value: 10},
			wantSQL:  "SELECT id FROM t WHERE valor_total > $1",
			wantArgs: []any{10},
		},
		{
			name:     "Contains",
			item:     filter.Item{Field: "status", Operator: filter.Contains, Value: "cot"},
			wantSQL:  "SELECT id FROM t WHERE status ILIKE $1",
			wantArgs: []any{"%cot%"},
		},
		{
			name:    "IsNull",
			item:    filter.Item{Field: "status", Operator: filter.IsNull},
			wantSQL: "SELECT id FROM t WHERE status IS NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ApplyFilters(Builder().Select("id").From("t"), []filter.Item{tt.item}, allowed)
			require.NoError(t, err)

			sql, args, err := q.ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if len(tt.wantArgs) > 0 {
				assert.Equal(t, tt.wantArgs, args)
			} else {
				assert.Empty(t, args)
			}
		})
	}
}

func TestApplyFilters_RejectsUnknownColumn(t *testing.T) {
	_, err := ApplyFilters(Builder().Select("id").From("t"),
		[]filter.Item{filter.Eq("senha; DROP TABLE t", 1)}, NewColumns("id"))

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestParseOrderBy(t *testing.T) {
	allowed := NewColumns("id", "created_at", "numero_requisicao")

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "id DESC", false},
		{"created_at", "created_at ASC", false},
		{"-created_at", "created_at DESC", false},
		{"+numero_requisicao", "numero_requisicao ASC", false},
		{"id desc", "id DESC", false},
		{"id sideways", "", true},
		{"-", "", true},
		{"password", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrderBy(tt.in, allowed, "id DESC")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "uq_numero"}
	err := MapError(dup, "insert", "compras.cotacao_ciclos")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)

	plain := errors.New("connection reset")
	err = MapError(plain, "insert", "compras.cotacao_ciclos")
	assert.ErrorIs(t, err, plain)
	assert.Contains(t, err.Error(), "insert compras.cotacao_ciclos")
}
