package quotation

import (
	"compras/internal/core/types"
)

// CellValue is the net value of an offer:
// max(0, qty*price - qty*price*pct/100 - abs).
func CellValue(c *Cell) types.Money {
	if c == nil {
		return types.Zero()
	}
	gross := c.Quantity.Mul(c.UnitPrice)
	return types.ClampZero(gross.Sub(types.Percent(gross, c.DiscountPct)).Sub(c.DiscountAbs))
}

// SupplierTotal is the rollup of one supplier over the selected items.
type SupplierTotal struct {
	SupplierKey string      `json:"fornecedor_key"`
	SupplierID  string      `json:"fornecedor_id"`
	Subtotal    types.Money `json:"subtotal"`
	Freight     types.Money `json:"valor_frete"`
	Tax         types.Money `json:"valor_imposto"`
	Discount    types.Money `json:"desconto"`
	Total       types.Money `json:"total"`
	PricedItems int         `json:"itens_cotados"`
}

// SupplierTotalOf applies freight, tax and the supplier discount to a subtotal:
// max(0, subtotal + freight + tax - (subtotal*pct/100 + abs)).
func SupplierTotalOf(sup *Supplier, subtotal types.Money) SupplierTotal {
	discount := types.Percent(subtotal, sup.DiscountPct).Add(sup.DiscountAbs)
	return SupplierTotal{
		SupplierKey: sup.Key,
		SupplierID:  sup.SupplierID,
		Subtotal:    subtotal,
		Freight:     sup.Freight,
		Tax:         sup.Tax,
		Discount:    discount,
		Total:       types.ClampZero(subtotal.Add(sup.Freight).Add(sup.Tax).Sub(discount)),
	}
}

// Summary is the comparison rollup of a session.
type Summary struct {
	Suppliers []SupplierTotal `json:"fornecedores"`
	// BestSupplierKey is empty when no supplier priced a selected item.
	BestSupplierKey string      `json:"melhor_fornecedor_key,omitempty"`
	BestTotal       types.Money `json:"melhor_total"`
}

// Summarize totals every supplier over the selected items. The best supplier
// is the smallest total among suppliers with at least one priced item; the
// comparison is strict, so on a tie the supplier added first wins.
func Summarize(s *Session) Summary {
	selected := s.SelectedItems()
	out := Summary{Suppliers: make([]SupplierTotal, 0, len(s.Suppliers)), BestTotal: types.Zero()}

	found := false
	for _, sup := range s.Suppliers {
		subtotal := types.Zero()
		priced := 0
		for _, it := range selected {
			c := s.Cell(sup.Key, it.Key)
			if c.Priced() {
				priced++
			}
			subtotal = subtotal.Add(CellValue(c))
		}

		total := SupplierTotalOf(sup, subtotal)
		total.PricedItems = priced
		out.Suppliers = append(out.Suppliers, total)

		if priced == 0 {
			continue
		}
		if !found || total.Total.LessThan(out.BestTotal) {
			found = true
			out.BestSupplierKey = sup.Key
			out.BestTotal = total.Total
		}
	}
	return out
}

// Extremes is the cheapest and most expensive positive offer for one item.
type Extremes struct {
	ItemKey              string      `json:"item_key"`
	CheapestSupplierKey  string      `json:"menor_fornecedor_key,omitempty"`
	CheapestValue        types.Money `json:"menor_valor"`
	ExpensiveSupplierKey string      `json:"maior_fornecedor_key,omitempty"`
	ExpensiveValue       types.Money `json:"maior_valor"`
	Offers               int         `json:"ofertas"`
}

// Saving is what picking the cheapest offer saves over the most expensive one.
func (e Extremes) Saving() types.Money {
	return e.ExpensiveValue.Sub(e.CheapestValue)
}

// ItemExtremes scans all suppliers' offers for an item. Only positive values
// count; comparisons are strict, so the supplier added first wins ties.
func ItemExtremes(s *Session, itemKey string) Extremes {
	out := Extremes{ItemKey: itemKey, CheapestValue: types.Zero(), ExpensiveValue: types.Zero()}

	for _, sup := range s.Suppliers {
		v := CellValue(s.Cell(sup.Key, itemKey))
		if !v.IsPositive() {
			continue
		}
		if out.Offers == 0 || v.LessThan(out.CheapestValue) {
			out.CheapestSupplierKey = sup.Key
			out.CheapestValue = v
		}
		if out.Offers == 0 || v.GreaterThan(out.ExpensiveValue) {
			out.ExpensiveSupplierKey = sup.Key
			out.ExpensiveValue = v
		}
		out.Offers++
	}
	return out
}

// IsCheapest reports whether supplierKey's offer for the item matches the
// lowest positive offer. Equal values count as cheapest regardless of order.
func IsCheapest(s *Session, itemKey, supplierKey string) bool {
	ext := ItemExtremes(s, itemKey)
	if ext.Offers == 0 {
		return true
	}
	return CellValue(s.Cell(supplierKey, itemKey)).Equal(ext.CheapestValue)
}

// Preview is everything the comparison screen shows.
type Preview struct {
	Summary     Summary           `json:"resumo"`
	Extremes    []Extremes        `json:"itens"`
	Saving      types.Money       `json:"economia"`
	Allocation  []AllocationRow   `json:"rateio"`
	CostCenters []CostCenterTotal `json:"rateio_centro_custo"`
}
