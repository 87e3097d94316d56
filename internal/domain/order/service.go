package order

import (
	"context"
	"fmt"
	"time"

	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/core/numerator"
	"compras/internal/domain/workflow"
	"compras/pkg/logger"
)

// Service provides purchase order operations.
type Service struct {
	repo      Repository
	workflow  *workflow.Service
	numerator numerator.Generator
	now       func() time.Time
}

// NewService creates an order service.
func NewService(repo Repository, wf *workflow.Service, gen numerator.Generator) *Service {
	return &Service{repo: repo, workflow: wf, numerator: gen, now: time.Now}
}

// Create numbers and stores an open order.
func (s *Service) Create(ctx context.Context, o *Order) error {
	if err := o.Validate(ctx); err != nil {
		return err
	}

	now := s.now()
	companyID := appctx.GetCompanyID(ctx)
	number, err := s.numerator.Next(ctx, numerator.Orders(companyID), now)
	if err != nil {
		return fmt.Errorf("generate number: %w", err)
	}

	o.ID = id.New()
	o.CompanyID = companyID
	o.Number = number
	o.WorkflowState = workflow.OrderOpen
	o.Status = statusOf(workflow.OrderOpen)
	o.CreatedBy = appctx.GetUserID(ctx)
	o.CreatedAt = now.UTC()
	o.UpdatedAt = o.CreatedAt

	if err := s.repo.Create(ctx, o); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	logger.Info(ctx, "purchase order created", "id", o.ID, "number", o.Number, "quote", o.QuoteID)
	return nil
}

// Get returns an order of the current company.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, appctx.GetCompanyID(ctx), orderID)
}

// Transition moves an order from its current state to to.
func (s *Service) Transition(ctx context.Context, orderID id.ID, to workflow.State, payload map[string]any) (*workflow.Log, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.workflow.Transition(ctx, workflow.TransitionRequest{
		Kind:      workflow.KindPurchaseOrder,
		CompanyID: o.CompanyID,
		EntityID:  o.ID,
		From:      o.WorkflowState,
		To:        to,
		ActorID:   appctx.GetUserID(ctx),
		Payload:   payload,
	})
}

func statusOf(state workflow.State) string {
	m, _ := workflow.MachineFor(workflow.KindPurchaseOrder)
	return m.Status(state)
}
