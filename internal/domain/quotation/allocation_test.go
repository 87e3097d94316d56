package quotation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveUnitPrice(t *testing.T) {
	c := &Cell{UnitPrice: money("20"), DiscountPct: money("5"), DiscountAbs: money("1")}
	assert.True(t, EffectiveUnitPrice(c).Equal(money("18")))

	c.DiscountAbs = money("50")
	assert.True(t, EffectiveUnitPrice(c).IsZero())
}

func TestAllocate_OneRowPerOriginLine(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.SetCell("A", keyM1, Cell{
		Quantity:    money("5"),
		UnitPrice:   money("20"),
		DiscountPct: money("5"),
		DiscountAbs: money("1"),
	}))

	rows := Allocate(context.Background(), s)

	require.Len(t, rows, 3)

	first := rows[0]
	assert.Equal(t, "REQ-2026-00001", first.RequisitionNumber)
	assert.Equal(t, "CC1", first.CostCenterID)
	assert.Equal(t, "P1", first.ProjectID)
	assert.Equal(t, "F-A", first.SupplierID)
	assert.True(t, first.UnitPrice.Equal(money("18")))
	assert.True(t, first.Total.Equal(money("36")))

	second := rows[1]
	assert.Equal(t, "REQ-2026-00002", second.RequisitionNumber)
	assert.Equal(t, "CC2", second.CostCenterID)
	assert.Empty(t, second.ProjectID)
	assert.True(t, second.Quantity.Equal(money("3")))
	assert.True(t, second.Total.Equal(money("54")))

	assert.Equal(t, "M2", rows[2].MaterialID)
	assert.True(t, rows[2].Total.Equal(money("30")))
}

func TestAllocate_SkipsItemWithoutWinner(t *testing.T) {
	s := readySession(t)
	s.ClearWinner(keyM1)

	rows := Allocate(context.Background(), s)

	require.Len(t, rows, 1)
	assert.Equal(t, "M2", rows[0].MaterialID)
}

func TestAllocate_SkipsUnselected(t *testing.T) {
	s := readySession(t)
	require.NoError(t, s.ToggleItem(keyM2))

	rows := Allocate(context.Background(), s)

	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "M1", r.MaterialID)
	}
}

func TestAllocationByCostCenter(t *testing.T) {
	s := readySession(t)

	totals := AllocationByCostCenter(Allocate(context.Background(), s))

	require.Len(t, totals, 2)
	assert.Equal(t, "CC1", totals[0].CostCenterID)
	assert.True(t, totals[0].Total.Equal(money("50")))
	assert.Equal(t, "CC2", totals[1].CostCenterID)
	assert.True(t, totals[1].Total.Equal(money("30")))
}

func TestBuildPreview(t *testing.T) {
	s := readySession(t)

	p := BuildPreview(context.Background(), s)

	assert.Equal(t, "A", p.Summary.BestSupplierKey)
	assert.Len(t, p.Extremes, 2)
	assert.Len(t, p.Allocation, 3)
	require.Len(t, p.CostCenters, 2)
	// M1: 60 - 50, M2: 35 - 30
	assert.True(t, p.Saving.Equal(money("15")), p.Saving.String())
}
