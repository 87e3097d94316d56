// Package quotation implements the quotation comparison workflow: the working
// set built from requisitions, the price matrix, winner selection, totals,
// allocation (rateio), the submission gate and submission itself.
package quotation

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
)

// DefaultResponseWindow is added to the quote date to get the default
// response deadline.
const DefaultResponseWindow = 7 * 24 * time.Hour

// RequisitionRef is the part of a requisition the working set keeps.
type RequisitionRef struct {
	ID            id.ID            `json:"id"`
	Number        string           `json:"numero_requisicao"`
	Type          requisition.Type `json:"tipo_requisicao"`
	Priority      string           `json:"prioridade,omitempty"`
	CostCenterID  *string          `json:"centro_custo_id,omitempty"`
	ProjectID     *string          `json:"projeto_id,omitempty"`
	WorkflowState workflow.State   `json:"workflow_state,omitempty"`
}

// OriginLine is a requisition line an aggregated item was built from.
type OriginLine struct {
	ItemID             id.ID          `json:"id"`
	RequisitionID      id.ID          `json:"requisicao_id"`
	RequisitionNumber  string         `json:"numero_requisicao"`
	Quantity           types.Quantity `json:"quantidade"`
	EstimatedUnitPrice types.Money    `json:"valor_unitario_estimado"`
	CostCenterID       *string        `json:"centro_custo_id,omitempty"`
	ProjectID          *string        `json:"projeto_id,omitempty"`
}

// Item is an aggregated item: requisition lines sharing material and
// requisition type, with quantities summed.
type Item struct {
	Key             string           `json:"key"`
	MaterialID      string           `json:"material_id"`
	MaterialCode    string           `json:"material_codigo,omitempty"`
	MaterialName    string           `json:"material_nome"`
	Unit            string           `json:"unidade_medida"`
	RequisitionType requisition.Type `json:"tipo_requisicao"`
	TotalQuantity   types.Quantity   `json:"quantidade_total"`
	Origins         []string         `json:"origem"`
	Lines           []OriginLine     `json:"itens_origem"`
}

// ItemKey builds the grouping key of an aggregated item.
func ItemKey(materialID string, t requisition.Type) string {
	return materialID + ":" + string(t)
}

// Supplier is a quotation participant with its supplier-level conditions.
type Supplier struct {
	Key          string          `json:"id"`
	SupplierID   string          `json:"fornecedor_id"`
	Name         string          `json:"nome,omitempty"`
	Freight      types.Money     `json:"valor_frete"`
	Tax          types.Money     `json:"valor_imposto"`
	DiscountPct  decimal.Decimal `json:"desconto_percentual"`
	DiscountAbs  types.Money     `json:"desconto_valor"`
	LeadTimeDays int             `json:"prazo_entrega"`
	PaymentTerms string          `json:"condicao_pagamento"`
	Notes        string          `json:"observacoes"`
}

// Assigned reports whether a supplier record was picked for this row.
func (s *Supplier) Assigned() bool {
	return strings.TrimSpace(s.SupplierID) != ""
}

// Cell is one supplier's offer for one aggregated item.
type Cell struct {
	Quantity     types.Quantity  `json:"quantidade_ofertada"`
	UnitPrice    types.Money     `json:"valor_unitario"`
	DiscountPct  decimal.Decimal `json:"desconto_percentual"`
	DiscountAbs  types.Money     `json:"desconto_valor"`
	LeadTimeDays int             `json:"prazo_entrega_dias"`
	PaymentTerms string          `json:"condicao_pagamento"`
	Notes        string          `json:"observacoes"`
	Winner       bool            `json:"is_vencedor"`
}

// Priced reports whether the offer has both quantity and price.
func (c *Cell) Priced() bool {
	return c != nil && c.Quantity.IsPositive() && c.UnitPrice.IsPositive()
}

// Session is the quotation working set. Suppliers and items keep insertion
// order; every scan over them follows that order.
type Session struct {
	Type          requisition.Type       `json:"tipo_cotacao"`
	QuoteDate     time.Time              `json:"data_cotacao"`
	Deadline      time.Time              `json:"data_limite"`
	InternalNotes string                 `json:"observacoes_internas"`
	Requisitions  []RequisitionRef       `json:"requisicoes"`
	Items         []*Item                `json:"itens"`
	Selected      map[string]bool        `json:"itens_selecionados"`
	Suppliers     []*Supplier            `json:"fornecedores"`
	Cells         map[string]CellsByItem `json:"valores"`
}

// CellsByItem maps item key to cell for one supplier.
type CellsByItem map[string]*Cell

// NewSession creates an empty session with the default deadline.
func NewSession(t requisition.Type, quoteDate time.Time) *Session {
	day := truncateDay(quoteDate)
	return &Session{
		Type:      t,
		QuoteDate: day,
		Deadline:  day.Add(DefaultResponseWindow),
		Selected:  map[string]bool{},
		Cells:     map[string]CellsByItem{},
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// IsEmergency reports whether the session is an emergency quotation.
func (s *Session) IsEmergency() bool {
	return s.Type == requisition.TypeEmergency
}

// Item returns the aggregated item with the given key.
func (s *Session) Item(key string) (*Item, bool) {
	for _, it := range s.Items {
		if it.Key == key {
			return it, true
		}
	}
	return nil, false
}

// Supplier returns the supplier row with the given key.
func (s *Session) Supplier(key string) (*Supplier, bool) {
	for _, sup := range s.Suppliers {
		if sup.Key == key {
			return sup, true
		}
	}
	return nil, false
}

// IsSelected reports whether an item takes part in the quotation.
func (s *Session) IsSelected(itemKey string) bool {
	return s.Selected[itemKey]
}

// SelectedItems returns selected items in insertion order.
func (s *Session) SelectedItems() []*Item {
	out := make([]*Item, 0, len(s.Items))
	for _, it := range s.Items {
		if s.Selected[it.Key] {
			out = append(out, it)
		}
	}
	return out
}

// ToggleItem flips the selection of an item.
func (s *Session) ToggleItem(itemKey string) error {
	if _, ok := s.Item(itemKey); !ok {
		return apperror.NewNotFound("item", itemKey)
	}
	if s.Selected[itemKey] {
		delete(s.Selected, itemKey)
	} else {
		s.Selected[itemKey] = true
	}
	return nil
}

// SelectAll selects every item, or clears the selection.
func (s *Session) SelectAll(selected bool) {
	s.Selected = map[string]bool{}
	if !selected {
		return
	}
	for _, it := range s.Items {
		s.Selected[it.Key] = true
	}
}

// SetType changes the quotation type. Switching to emergency keeps only the
// first supplier.
func (s *Session) SetType(t requisition.Type) error {
	if !t.Valid() {
		return apperror.NewValidation("tipo de cotação inválido").WithDetail("value", t)
	}
	s.Type = t
	if s.IsEmergency() && len(s.Suppliers) > 1 {
		for _, dropped := range s.Suppliers[1:] {
			delete(s.Cells, dropped.Key)
		}
		s.Suppliers = s.Suppliers[:1]
	}
	return nil
}

// AddSupplier appends a supplier row. On rejection the list is unchanged.
// An empty Key is filled with a generated one.
func (s *Session) AddSupplier(sup Supplier) (*Supplier, error) {
	if s.IsEmergency() && len(s.Suppliers) >= 1 {
		return nil, ErrEmergencySingleSupplier
	}
	if len(s.Suppliers) >= MaxSuppliers {
		return nil, ErrTooManySuppliers
	}
	if err := checkSupplierValues(&sup); err != nil {
		return nil, err
	}
	if sup.Key == "" {
		sup.Key = "temp-" + id.Short(id.New())
	}
	if _, exists := s.Supplier(sup.Key); exists {
		return nil, apperror.NewDuplicate("fornecedor", "id", sup.Key)
	}
	if sup.Assigned() && s.hasSupplierID(sup.SupplierID) {
		return nil, apperror.NewDuplicate("fornecedor", "fornecedor_id", sup.SupplierID)
	}

	added := sup
	s.Suppliers = append(s.Suppliers, &added)
	return &added, nil
}

func (s *Session) hasSupplierID(supplierID string) bool {
	return slices.ContainsFunc(s.Suppliers, func(x *Supplier) bool {
		return x.SupplierID == supplierID
	})
}

// RemoveSupplier deletes a supplier row and its offers.
func (s *Session) RemoveSupplier(key string) error {
	idx := slices.IndexFunc(s.Suppliers, func(x *Supplier) bool { return x.Key == key })
	if idx < 0 {
		return apperror.NewNotFound("fornecedor", key)
	}
	s.Suppliers = slices.Delete(s.Suppliers, idx, idx+1)
	delete(s.Cells, key)
	return nil
}

// UpdateSupplier replaces the conditions of a supplier row, keeping its key.
func (s *Session) UpdateSupplier(key string, update Supplier) error {
	sup, ok := s.Supplier(key)
	if !ok {
		return apperror.NewNotFound("fornecedor", key)
	}
	update.Key = key
	if err := checkSupplierValues(&update); err != nil {
		return err
	}
	if update.Assigned() && update.SupplierID != sup.SupplierID && s.hasSupplierID(update.SupplierID) {
		return apperror.NewDuplicate("fornecedor", "fornecedor_id", update.SupplierID)
	}
	*sup = update
	return nil
}

// Cell returns the offer of a supplier for an item, or nil.
func (s *Session) Cell(supplierKey, itemKey string) *Cell {
	return s.Cells[supplierKey][itemKey]
}

// SetCell stores an offer. The winner flag is not taken from c; use SetWinner.
func (s *Session) SetCell(supplierKey, itemKey string, c Cell) error {
	if _, ok := s.Supplier(supplierKey); !ok {
		return apperror.NewNotFound("fornecedor", supplierKey)
	}
	if _, ok := s.Item(itemKey); !ok {
		return apperror.NewNotFound("item", itemKey)
	}
	if err := checkCellValues(&c, supplierKey, itemKey); err != nil {
		return err
	}

	row := s.Cells[supplierKey]
	if row == nil {
		row = CellsByItem{}
		s.Cells[supplierKey] = row
	}
	if prev := row[itemKey]; prev != nil {
		c.Winner = prev.Winner
	} else {
		c.Winner = false
	}
	row[itemKey] = &c
	return nil
}

// SetWinner marks or unmarks a supplier as winner of an item. Marking clears
// the flag on every other supplier's cell for that item, so at most one cell
// per item is flagged.
func (s *Session) SetWinner(itemKey, supplierKey string, winner bool) error {
	if _, ok := s.Item(itemKey); !ok {
		return apperror.NewNotFound("item", itemKey)
	}
	if _, ok := s.Supplier(supplierKey); !ok {
		return apperror.NewNotFound("fornecedor", supplierKey)
	}

	if !winner {
		if c := s.Cell(supplierKey, itemKey); c != nil {
			c.Winner = false
		}
		return nil
	}

	for _, sup := range s.Suppliers {
		if c := s.Cell(sup.Key, itemKey); c != nil {
			c.Winner = false
		}
	}

	row := s.Cells[supplierKey]
	if row == nil {
		row = CellsByItem{}
		s.Cells[supplierKey] = row
	}
	c := row[itemKey]
	if c == nil {
		c = &Cell{}
		row[itemKey] = c
	}
	c.Winner = true
	return nil
}

// Winners returns the supplier keys flagged as winner for an item, in
// supplier order.
func (s *Session) Winners(itemKey string) []string {
	var keys []string
	for _, sup := range s.Suppliers {
		if c := s.Cell(sup.Key, itemKey); c != nil && c.Winner {
			keys = append(keys, sup.Key)
		}
	}
	return keys
}

// Winner returns the single winning supplier of an item.
func (s *Session) Winner(itemKey string) (*Supplier, *Cell, bool) {
	keys := s.Winners(itemKey)
	if len(keys) != 1 {
		return nil, nil, false
	}
	sup, _ := s.Supplier(keys[0])
	return sup, s.Cell(keys[0], itemKey), true
}

// Normalize fills nil maps and checks a session decoded from a request or a
// draft against the rules the edit methods enforce: item and supplier keys
// are unique, a supplier record is used by one row only, the row count fits
// the quotation type, no value is negative and cells point at known rows.
func (s *Session) Normalize() error {
	if s.Selected == nil {
		s.Selected = map[string]bool{}
	}
	if s.Cells == nil {
		s.Cells = map[string]CellsByItem{}
	}
	if s.Type == "" {
		s.Type = DeriveType(s.Requisitions)
	}
	if !s.Type.Valid() {
		return apperror.NewValidation("tipo de cotação inválido").WithDetail("value", s.Type)
	}
	if !s.Deadline.IsZero() && s.Deadline.Before(s.QuoteDate) {
		return apperror.NewValidation("data limite anterior à data da cotação").
			WithDetail("field", "data_limite")
	}

	items := make(map[string]bool, len(s.Items))
	for i, it := range s.Items {
		if it == nil || it.Key == "" || items[it.Key] {
			return apperror.NewValidation("item sem identificador ou repetido").WithDetail("index", i)
		}
		if it.TotalQuantity.IsNegative() {
			return apperror.NewValidation("quantidade do item não pode ser negativa").WithDetail("item", it.Key)
		}
		items[it.Key] = true
	}

	if s.IsEmergency() && len(s.Suppliers) > 1 {
		return ErrEmergencySingleSupplier
	}
	if len(s.Suppliers) > MaxSuppliers {
		return ErrTooManySuppliers
	}
	seen := make(map[string]bool, len(s.Suppliers))
	records := make(map[string]bool, len(s.Suppliers))
	for _, sup := range s.Suppliers {
		if sup == nil || sup.Key == "" || seen[sup.Key] {
			return apperror.NewValidation("fornecedor sem identificador ou repetido")
		}
		if err := checkSupplierValues(sup); err != nil {
			return err
		}
		if sup.Assigned() {
			if records[sup.SupplierID] {
				return apperror.NewDuplicate("fornecedor", "fornecedor_id", sup.SupplierID)
			}
			records[sup.SupplierID] = true
		}
		seen[sup.Key] = true
	}

	for key := range s.Selected {
		if !items[key] {
			return apperror.NewValidation(fmt.Sprintf("item selecionado desconhecido: %s", key))
		}
	}
	for supKey, row := range s.Cells {
		if !seen[supKey] {
			return apperror.NewValidation(fmt.Sprintf("valores para fornecedor desconhecido: %s", supKey))
		}
		for itemKey, c := range row {
			if c == nil {
				delete(row, itemKey)
				continue
			}
			if !items[itemKey] {
				return apperror.NewValidation(fmt.Sprintf("valores para item desconhecido: %s", itemKey))
			}
			if err := checkCellValues(c, supKey, itemKey); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkSupplierValues(sup *Supplier) error {
	if sup.Freight.IsNegative() || sup.Tax.IsNegative() || sup.DiscountPct.IsNegative() ||
		sup.DiscountAbs.IsNegative() || sup.LeadTimeDays < 0 {
		return apperror.NewValidation("condições do fornecedor não podem ser negativas").
			WithDetail("fornecedor", sup.Key)
	}
	return nil
}

func checkCellValues(c *Cell, supplierKey, itemKey string) error {
	if c.Quantity.IsNegative() || c.UnitPrice.IsNegative() || c.DiscountPct.IsNegative() ||
		c.DiscountAbs.IsNegative() || c.LeadTimeDays < 0 {
		return apperror.NewValidation("valores da cotação não podem ser negativos").
			WithDetail("fornecedor", supplierKey).
			WithDetail("item", itemKey)
	}
	return nil
}

// ClearWinner removes the winner flag from every supplier for an item.
func (s *Session) ClearWinner(itemKey string) {
	for _, sup := range s.Suppliers {
		if c := s.Cell(sup.Key, itemKey); c != nil {
			c.Winner = false
		}
	}
}
