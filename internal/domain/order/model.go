// Package order holds purchase orders (pedidos de compra) issued from an
// approved quotation.
package order

import (
	"context"
	"strings"
	"time"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/domain/workflow"
)

// Order is one row of compras.pedidos_compra.
type Order struct {
	ID                id.ID          `db:"id" json:"id"`
	CompanyID         string         `db:"company_id" json:"company_id"`
	Number            string         `db:"numero_pedido" json:"numero_pedido"`
	QuoteID           id.ID          `db:"cotacao_id" json:"cotacao_id"`
	SupplierID        string         `db:"fornecedor_id" json:"fornecedor_id"`
	ExpectedDelivery  *time.Time     `db:"data_entrega_prevista" json:"data_entrega_prevista,omitempty"`
	SpecialConditions *string        `db:"condicoes_especiais" json:"condicoes_especiais,omitempty"`
	Notes             *string        `db:"observacoes" json:"observacoes,omitempty"`
	WorkflowState     workflow.State `db:"workflow_state" json:"workflow_state"`
	Status            string         `db:"status" json:"status"`
	CreatedBy         string         `db:"created_by" json:"created_by"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Validate checks the fields an order needs before it is created.
func (o *Order) Validate(_ context.Context) error {
	if id.IsNil(o.QuoteID) {
		return apperror.NewValidation("cotação é obrigatória").WithDetail("field", "cotacao_id")
	}
	if strings.TrimSpace(o.SupplierID) == "" {
		return apperror.NewValidation("fornecedor é obrigatório").WithDetail("field", "fornecedor_id")
	}
	return nil
}

// Repository persists purchase orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, companyID string, orderID id.ID) (*Order, error)
}
