// Package requisition provides purchase requisitions (requisições de compra)
// and their line items.
package requisition

import (
	"context"
	"strings"
	"time"

	"compras/internal/core/apperror"
	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/workflow"
)

// Type is the requisition type (tipo_requisicao).
type Type string

const (
	TypeReplenishment  Type = "reposicao"
	TypeDirectPurchase Type = "compra_direta"
	TypeEmergency      Type = "emergencial"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	switch t {
	case TypeReplenishment, TypeDirectPurchase, TypeEmergency:
		return true
	}
	return false
}

// Label returns the display name used in exports and document titles.
func (t Type) Label() string {
	switch t {
	case TypeReplenishment:
		return "Reposição"
	case TypeDirectPurchase:
		return "Compra Direta"
	case TypeEmergency:
		return "Emergencial"
	}
	return string(t)
}

// Requisition is a purchase requisition.
type Requisition struct {
	ID               id.ID          `db:"id" json:"id"`
	CompanyID        string         `db:"company_id" json:"company_id"`
	Number           string         `db:"numero_requisicao" json:"numero_requisicao"`
	RequesterID      string         `db:"solicitante_id" json:"solicitante_id"`
	CostCenterID     *string        `db:"centro_custo_id" json:"centro_custo_id,omitempty"`
	ProjectID        *string        `db:"projeto_id" json:"projeto_id,omitempty"`
	Type             Type           `db:"tipo_requisicao" json:"tipo_requisicao"`
	Priority         string         `db:"prioridade" json:"prioridade"`
	DestinationID    *string        `db:"destino_almoxarifado_id" json:"destino_almoxarifado_id,omitempty"`
	DeliveryLocation *string        `db:"local_entrega" json:"local_entrega,omitempty"`
	IsEmergency      bool           `db:"is_emergencial" json:"is_emergencial"`
	Justification    *string        `db:"justificativa" json:"justificativa,omitempty"`
	Notes            *string        `db:"observacoes" json:"observacoes,omitempty"`
	NeededBy         *time.Time     `db:"data_necessidade" json:"data_necessidade,omitempty"`
	WorkflowState    workflow.State `db:"workflow_state" json:"workflow_state"`
	Status           string         `db:"status" json:"status"`
	EstimatedTotal   *types.Money   `db:"valor_total_estimado" json:"valor_total_estimado,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`

	Items []Item `db:"-" json:"itens,omitempty"`
}

// Item is a requisition line (requisicao_itens). Material code and name are
// read through a join and are never written.
type Item struct {
	ID                 id.ID          `db:"id" json:"id"`
	RequisitionID      id.ID          `db:"requisicao_id" json:"requisicao_id"`
	MaterialID         string         `db:"material_id" json:"material_id"`
	MaterialCode       *string        `db:"-" json:"material_codigo,omitempty"`
	MaterialName       string         `db:"-" json:"material_nome,omitempty"`
	Quantity           types.Quantity `db:"quantidade" json:"quantidade"`
	Unit               string         `db:"unidade_medida" json:"unidade_medida"`
	EstimatedUnitPrice types.Money    `db:"valor_unitario_estimado" json:"valor_unitario_estimado"`
	Notes              *string        `db:"observacoes" json:"observacoes,omitempty"`
	WarehouseID        *string        `db:"almoxarifado_id" json:"almoxarifado_id,omitempty"`
}

// InitialState returns the state a new requisition starts in. Emergency
// requisitions skip straight to approval.
func InitialState(t Type) workflow.State {
	if t == TypeEmergency {
		return workflow.RequisitionPendingApproval
	}
	return workflow.RequisitionCreated
}

// EstimatedValue sums quantity times estimated unit price over all lines.
func (r *Requisition) EstimatedValue() types.Money {
	total := types.Zero()
	for _, it := range r.Items {
		total = total.Add(it.Quantity.Mul(it.EstimatedUnitPrice))
	}
	return total
}

// Validate checks the fields a requisition needs before it is created.
func (r *Requisition) Validate(_ context.Context) error {
	if !r.Type.Valid() {
		return apperror.NewValidation("tipo de requisição inválido").
			WithDetail("field", "tipo_requisicao").
			WithDetail("value", r.Type)
	}
	if r.CostCenterID == nil || strings.TrimSpace(*r.CostCenterID) == "" {
		return apperror.NewValidation("centro de custo é obrigatório").
			WithDetail("field", "centro_custo_id")
	}
	if strings.TrimSpace(r.Priority) == "" {
		return apperror.NewValidation("prioridade é obrigatória").
			WithDetail("field", "prioridade")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("a requisição precisa de ao menos um item").
			WithDetail("field", "itens")
	}
	for i, it := range r.Items {
		if strings.TrimSpace(it.MaterialID) == "" {
			return apperror.NewValidation("material é obrigatório").
				WithDetail("field", "itens").
				WithDetail("line", i+1)
		}
		if !it.Quantity.IsPositive() {
			return apperror.NewValidation("quantidade deve ser positiva").
				WithDetail("field", "itens").
				WithDetail("line", i+1)
		}
		if it.EstimatedUnitPrice.IsNegative() {
			return apperror.NewValidation("valor unitário estimado não pode ser negativo").
				WithDetail("field", "itens").
				WithDetail("line", i+1)
		}
	}
	return nil
}
