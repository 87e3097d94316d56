package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/core/types"
)

func ptr[T any](v T) *T { return &v }

func newRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter()
	require.NoError(t, err)
	return r
}

func cfg(level int, mutate func(*Config)) Config {
	c := Config{ID: id.New(), ProcessType: ProcessRequisition, Level: level, Active: true}
	if mutate != nil {
		mutate(&c)
	}
	return c
}

func TestRoute(t *testing.T) {
	ctx := context.Background()
	r := newRouter(t)

	byCostCenter := cfg(3, func(c *Config) { c.CostCenterID = ptr("CC1") })
	upTo1000 := cfg(2, func(c *Config) { c.ValueLimit = ptr(types.MustMoney("1000")) })
	emergency := cfg(2, func(c *Config) { c.Condition = ptr(`tipo == "emergencial" && valor_total > 500.0`) })
	base := cfg(1, nil)
	inactive := cfg(9, func(c *Config) { c.Active = false })
	otherProcess := cfg(9, func(c *Config) { c.ProcessType = ProcessQuotation })
	configs := []Config{base, upTo1000, emergency, byCostCenter, inactive, otherProcess}

	tests := []struct {
		name  string
		facts Facts
		want  id.ID
		rule  string
	}{
		{
			name:  "cost center at the highest level",
			facts: Facts{ProcessType: ProcessRequisition, CostCenterID: "CC1", Value: types.MustMoney("5000")},
			want:  byCostCenter.ID,
			rule:  "Regra por Centro de Custo",
		},
		{
			name:  "value within limit",
			facts: Facts{ProcessType: ProcessRequisition, CostCenterID: "CC2", Value: types.MustMoney("800")},
			want:  upTo1000.ID,
			rule:  "Regra por Valor (até R$ 1000.00)",
		},
		{
			name:  "cel condition",
			facts: Facts{ProcessType: ProcessRequisition, Type: "emergencial", Value: types.MustMoney("1500")},
			want:  emergency.ID,
			rule:  "Regra por Condição",
		},
		{
			name:  "general rule",
			facts: Facts{ProcessType: ProcessRequisition, Value: types.MustMoney("1500")},
			want:  base.ID,
			rule:  "Regra geral",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Route(ctx, configs, tt.facts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Config.ID)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestRoute_FallsBackToHighestLevel(t *testing.T) {
	r := newRouter(t)
	top := cfg(2, func(c *Config) { c.CostCenterID = ptr("CC9") })
	low := cfg(1, func(c *Config) { c.ValueLimit = ptr(types.MustMoney("10")) })

	d, err := r.Route(context.Background(), []Config{low, top}, Facts{ProcessType: ProcessRequisition, Value: types.MustMoney("50")})

	require.NoError(t, err)
	assert.Equal(t, top.ID, d.Config.ID)
	assert.Equal(t, "Nível máximo", d.Rule)
}

func TestRoute_NoConfigs(t *testing.T) {
	r := newRouter(t)

	_, err := r.Route(context.Background(), nil, Facts{ProcessType: ProcessRequisition})

	assert.True(t, apperror.IsNotFound(err))
}

func TestCheck(t *testing.T) {
	r := newRouter(t)

	assert.NoError(t, r.Check(`valor_total >= 100.0`))
	assert.True(t, apperror.HasCode(r.Check(`valor_total +`), apperror.CodeValidation))
	assert.True(t, apperror.HasCode(r.Check(`valor_total * 2.0`), apperror.CodeValidation))
}
