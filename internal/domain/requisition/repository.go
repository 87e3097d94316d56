package requisition

import (
	"context"

	"compras/internal/core/id"
	"compras/internal/domain"
	"compras/internal/domain/workflow"
)

// Repository persists requisitions and their lines.
type Repository interface {
	Create(ctx context.Context, req *Requisition) error
	CreateItem(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, companyID string, reqID id.ID) (*Requisition, error)
	GetByIDs(ctx context.Context, companyID string, ids []id.ID) ([]*Requisition, error)
	// GetItems returns the lines of the given requisitions joined with their
	// materials, ordered by requisition then line creation.
	GetItems(ctx context.Context, reqIDs []id.ID) ([]Item, error)
	List(ctx context.Context, companyID string, filter ListFilter) (domain.ListResult[*Requisition], error)
}

// ListFilter narrows requisition listings.
type ListFilter struct {
	domain.ListFilter

	States []workflow.State
	Type   *Type
}
