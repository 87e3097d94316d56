package dto

import (
	"time"

	"compras/internal/core/id"
	"compras/internal/core/types"
	"compras/internal/domain/order"
	"compras/internal/domain/requisition"
)

// RequisitionItemRequest is one requisition line.
type RequisitionItemRequest struct {
	MaterialID         string         `json:"material_id" binding:"required"`
	Quantity           types.Quantity `json:"quantidade"`
	Unit               string         `json:"unidade_medida"`
	EstimatedUnitPrice types.Money    `json:"valor_unitario_estimado"`
	Notes              *string        `json:"observacoes"`
	WarehouseID        *string        `json:"almoxarifado_id"`
}

// CreateRequisitionRequest creates a requisition with its lines.
type CreateRequisitionRequest struct {
	Type             requisition.Type         `json:"tipo_requisicao" binding:"required"`
	Priority         string                   `json:"prioridade"`
	CostCenterID     *string                  `json:"centro_custo_id"`
	ProjectID        *string                  `json:"projeto_id"`
	DestinationID    *string                  `json:"destino_almoxarifado_id"`
	DeliveryLocation *string                  `json:"local_entrega"`
	Justification    *string                  `json:"justificativa"`
	Notes            *string                  `json:"observacoes"`
	NeededBy         *time.Time               `json:"data_necessidade"`
	Items            []RequisitionItemRequest `json:"itens" binding:"required,min=1,dive"`
}

// ToDomain maps the request to a requisition.
func (r CreateRequisitionRequest) ToDomain() *requisition.Requisition {
	req := &requisition.Requisition{
		Type:             r.Type,
		Priority:         r.Priority,
		CostCenterID:     r.CostCenterID,
		ProjectID:        r.ProjectID,
		DestinationID:    r.DestinationID,
		DeliveryLocation: r.DeliveryLocation,
		Justification:    r.Justification,
		Notes:            r.Notes,
		NeededBy:         r.NeededBy,
		Items:            make([]requisition.Item, 0, len(r.Items)),
	}
	if req.Priority == "" {
		req.Priority = "normal"
	}
	for _, it := range r.Items {
		req.Items = append(req.Items, requisition.Item{
			MaterialID:         it.MaterialID,
			Quantity:           it.Quantity,
			Unit:               it.Unit,
			EstimatedUnitPrice: it.EstimatedUnitPrice,
			Notes:              it.Notes,
			WarehouseID:        it.WarehouseID,
		})
	}
	return req
}

// WorkingSetRequest lists the requisitions a quotation is built from.
type WorkingSetRequest struct {
	RequisitionIDs []id.ID `json:"requisicao_ids" binding:"required,min=1"`
}

// CreateOrderRequest opens a purchase order for a quote winner.
type CreateOrderRequest struct {
	QuoteID           id.ID      `json:"cotacao_id" binding:"required"`
	SupplierID        string     `json:"fornecedor_id" binding:"required"`
	ExpectedDelivery  *time.Time `json:"data_entrega_prevista"`
	SpecialConditions *string    `json:"condicoes_especiais"`
	Notes             *string    `json:"observacoes"`
}

// ToDomain maps the request to an order.
func (r CreateOrderRequest) ToDomain() *order.Order {
	return &order.Order{
		QuoteID:           r.QuoteID,
		SupplierID:        r.SupplierID,
		ExpectedDelivery:  r.ExpectedDelivery,
		SpecialConditions: r.SpecialConditions,
		Notes:             r.Notes,
	}
}
