package quotation

import (
	"context"
	"time"

	"compras/internal/core/id"
	"compras/internal/domain/requisition"
	"compras/internal/domain/workflow"
)

// Repository persists submitted quotations.
type Repository interface {
	CreateCycle(ctx context.Context, c *Cycle) error
	CreateSupplierQuote(ctx context.Context, q *SupplierQuote) error
	CreateItemQuote(ctx context.Context, q *ItemQuote) error
	GetCycle(ctx context.Context, companyID string, cycleID id.ID) (*Cycle, error)
	// ListExpired returns open cycles of every company whose deadline is
	// before now, oldest deadline first.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Cycle, error)
}

// RequisitionTransitioner moves a requisition to a new workflow state.
type RequisitionTransitioner interface {
	Transition(ctx context.Context, reqID id.ID, to workflow.State, payload map[string]any) (*workflow.Log, error)
}

// RequisitionLoader reads requisitions with their lines, in the order asked.
type RequisitionLoader interface {
	LoadMany(ctx context.Context, ids []id.ID) ([]*requisition.Requisition, error)
}

// Snapshotter keeps a copy of the comparison as it was when submitted.
type Snapshotter interface {
	Snapshot(ctx context.Context, entityType string, entityID id.ID, payload any) error
}
