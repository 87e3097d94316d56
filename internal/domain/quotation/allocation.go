package quotation

import (
	"context"

	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/pkg/logger"
)

// AllocationRow apportions the winning price to one originating requisition
// line, for cost-center and project reporting.
type AllocationRow struct {
	ItemID            id.ID          `json:"item_id" csv:"item_id"`
	MaterialID        string         `json:"material_id" csv:"material_id"`
	MaterialName      string         `json:"material_nome" csv:"material_nome"`
	RequisitionID     id.ID          `json:"requisicao_id" csv:"requisicao_id"`
	RequisitionNumber string         `json:"requisicao_numero" csv:"requisicao_numero"`
	CostCenterID      string         `json:"centro_custo_id,omitempty" csv:"centro_custo_id"`
	ProjectID         string         `json:"projeto_id,omitempty" csv:"projeto_id"`
	SupplierKey       string         `json:"fornecedor_key" csv:"-"`
	SupplierID        string         `json:"fornecedor_id" csv:"fornecedor_id"`
	Quantity          types.Quantity `json:"quantidade" csv:"quantidade"`
	UnitPrice         types.Money    `json:"valor_unitario" csv:"valor_unitario"`
	Total             types.Money    `json:"valor_total" csv:"valor_total"`
}

// EffectiveUnitPrice is the unit price after the offer's percentage discount
// and its per-unit absolute discount: max(0, price - price*pct/100 - abs).
func EffectiveUnitPrice(c *Cell) types.Money {
	return types.ClampZero(c.UnitPrice.Sub(types.Percent(c.UnitPrice, c.DiscountPct)).Sub(c.DiscountAbs))
}

// Allocate builds one row per origin line of every selected item that has a
// winner. The row total is the line's own quantity times the effective unit
// price. A selected item without a single winner contributes nothing and is
// logged; the submission gate is what blocks on it.
func Allocate(ctx context.Context, s *Session) []AllocationRow {
	var rows []AllocationRow

	for _, it := range s.SelectedItems() {
		sup, cell, ok := s.Winner(it.Key)
		if !ok {
			logger.Warn(ctx, "no winner for item, skipping allocation",
				"item", it.Key,
				"material", it.MaterialName,
				"winners", len(s.Winners(it.Key)))
			continue
		}

		unit := EffectiveUnitPrice(cell)
		for _, line := range it.Lines {
			rows = append(rows, AllocationRow{
				ItemID:            line.ItemID,
				MaterialID:        it.MaterialID,
				MaterialName:      it.MaterialName,
				RequisitionID:     line.RequisitionID,
				RequisitionNumber: line.RequisitionNumber,
				CostCenterID:      deref(line.CostCenterID),
				ProjectID:         deref(line.ProjectID),
				SupplierKey:       sup.Key,
				SupplierID:        sup.SupplierID,
				Quantity:          line.Quantity,
				UnitPrice:         unit,
				Total:             line.Quantity.Mul(unit),
			})
		}
	}
	return rows
}

// CostCenterTotal is the allocated value of one cost center.
type CostCenterTotal struct {
	CostCenterID string      `json:"centro_custo_id"`
	Total        types.Money `json:"valor_total"`
}

// AllocationByCostCenter sums allocation totals per cost center, in order of
// first appearance. Rows without a cost center are grouped under "".
func AllocationByCostCenter(rows []AllocationRow) []CostCenterTotal {
	var out []CostCenterTotal
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.CostCenterID]
		if !ok {
			i = len(out)
			index[r.CostCenterID] = i
			out = append(out, CostCenterTotal{CostCenterID: r.CostCenterID, Total: types.Zero()})
		}
		out[i].Total = out[i].Total.Add(r.Total)
	}
	return out
}

// BuildPreview computes the comparison screen data. Saving adds up, over the
// selected items, the gap between the most expensive and the cheapest offer.
func BuildPreview(ctx context.Context, s *Session) Preview {
	selected := s.SelectedItems()
	ext := make([]Extremes, 0, len(selected))
	saving := types.Zero()
	for _, it := range selected {
		e := ItemExtremes(s, it.Key)
		saving = saving.Add(e.Saving())
		ext = append(ext, e)
	}
	rows := Allocate(ctx, s)
	return Preview{
		Summary:     Summarize(s),
		Extremes:    ext,
		Saving:      saving,
		Allocation:  rows,
		CostCenters: AllocationByCostCenter(rows),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
