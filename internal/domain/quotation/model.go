package quotation

import (
	"time"

	"github.com/shopspring/decimal"

	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
)

// Cycle is one row of compras.cotacao_ciclos: a submitted quotation round.
type Cycle struct {
	ID             id.ID            `db:"id" json:"id"`
	CompanyID      string           `db:"company_id" json:"company_id"`
	Number         string           `db:"numero_cotacao" json:"numero_cotacao"`
	Type           requisition.Type `db:"tipo_cotacao" json:"tipo_cotacao"`
	QuoteDate      time.Time        `db:"data_cotacao" json:"data_cotacao"`
	Deadline       time.Time        `db:"data_limite" json:"data_limite"`
	InternalNotes  *string          `db:"observacoes_internas" json:"observacoes_internas,omitempty"`
	RequisitionIDs []id.ID          `db:"requisicao_ids" json:"requisicao_ids"`
	WorkflowState  workflow.State   `db:"workflow_state" json:"workflow_state"`
	Status         string           `db:"status" json:"status"`
	BestSupplierID *string          `db:"melhor_fornecedor_id" json:"melhor_fornecedor_id,omitempty"`
	TotalValue     types.Money      `db:"valor_total" json:"valor_total"`
	CreatedBy      string           `db:"created_by" json:"created_by"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// SupplierQuote is one row of compras.cotacao_fornecedores.
type SupplierQuote struct {
	ID           id.ID           `db:"id" json:"id"`
	CycleID      id.ID           `db:"cotacao_id" json:"cotacao_id"`
	CompanyID    string          `db:"company_id" json:"company_id"`
	SupplierID   string          `db:"fornecedor_id" json:"fornecedor_id"`
	Freight      types.Money     `db:"valor_frete" json:"valor_frete"`
	Tax          types.Money     `db:"valor_imposto" json:"valor_imposto"`
	DiscountPct  decimal.Decimal `db:"desconto_percentual" json:"desconto_percentual"`
	DiscountAbs  types.Money     `db:"desconto_valor" json:"desconto_valor"`
	LeadTimeDays int             `db:"prazo_entrega" json:"prazo_entrega"`
	PaymentTerms *string         `db:"condicao_pagamento" json:"condicao_pagamento,omitempty"`
	Notes        *string         `db:"observacoes" json:"observacoes,omitempty"`
	Subtotal     types.Money     `db:"subtotal" json:"subtotal"`
	Total        types.Money     `db:"valor_total" json:"valor_total"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// ItemQuote is one row of compras.cotacao_item_fornecedor: a supplier's offer
// for one originating requisition line.
type ItemQuote struct {
	ID                id.ID           `db:"id" json:"id"`
	SupplierQuoteID   id.ID           `db:"cotacao_fornecedor_id" json:"cotacao_fornecedor_id"`
	RequisitionItemID id.ID           `db:"requisicao_item_id" json:"requisicao_item_id"`
	MaterialID        string          `db:"material_id" json:"material_id"`
	Quantity          types.Quantity  `db:"quantidade_ofertada" json:"quantidade_ofertada"`
	UnitPrice         types.Money     `db:"valor_unitario" json:"valor_unitario"`
	DiscountPct       decimal.Decimal `db:"desconto_percentual" json:"desconto_percentual"`
	DiscountAbs       types.Money     `db:"desconto_valor" json:"desconto_valor"`
	Total             types.Money     `db:"valor_total_calculado" json:"valor_total_calculado"`
	LeadTimeDays      int             `db:"prazo_entrega_dias" json:"prazo_entrega_dias"`
	PaymentTerms      *string         `db:"condicao_pagamento" json:"condicao_pagamento,omitempty"`
	Notes             *string         `db:"observacoes" json:"observacoes,omitempty"`
	Winner            bool            `db:"is_vencedor" json:"is_vencedor"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
