package requisition

import (
	"context"
	"fmt"
	"time"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/core/numerator"
	"compras/internal/core/tx"
	"compras/internal/domain"
	"compras/internal/domain/workflow"
	"compras/pkg/logger"
)

// Service provides business operations for requisitions.
type Service struct {
	repo      Repository
	workflow  *workflow.Service
	numerator numerator.Generator
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a requisition service.
func NewService(repo Repository, wf *workflow.Service, gen numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		workflow:  wf,
		numerator: gen,
		txManager: txManager,
		now:       time.Now,
	}
}

// Create numbers and stores a requisition with its lines.
func (s *Service) Create(ctx context.Context, req *Requisition) error {
	if err := req.Validate(ctx); err != nil {
		return err
	}

	companyID := appctx.GetCompanyID(ctx)
	now := s.now()

	number, err := s.numerator.Next(ctx, numerator.Requisitions(companyID), now)
	if err != nil {
		return fmt.Errorf("generate number: %w", err)
	}

	req.ID = id.New()
	req.CompanyID = companyID
	req.Number = number
	req.RequesterID = appctx.GetUserID(ctx)
	req.IsEmergency = req.Type == TypeEmergency
	req.WorkflowState = InitialState(req.Type)
	req.Status = string(req.WorkflowState)
	total := req.EstimatedValue()
	req.EstimatedTotal = &total
	req.CreatedAt = now.UTC()
	req.UpdatedAt = req.CreatedAt

	for i := range req.Items {
		req.Items[i].ID = id.New()
		req.Items[i].RequisitionID = req.ID
		if req.Items[i].Unit == "" {
			req.Items[i].Unit = "UN"
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, req); err != nil {
			return fmt.Errorf("create requisition: %w", err)
		}
		for i := range req.Items {
			if err := s.repo.CreateItem(ctx, &req.Items[i]); err != nil {
				return fmt.Errorf("create requisition item %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "requisition created",
		"id", req.ID,
		"number", req.Number,
		"type", req.Type,
		"items", len(req.Items))
	return nil
}

// Get returns a requisition with its lines.
func (s *Service) Get(ctx context.Context, reqID id.ID) (*Requisition, error) {
	req, err := s.repo.GetByID(ctx, appctx.GetCompanyID(ctx), reqID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, []id.ID{reqID})
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	req.Items = items
	return req, nil
}

// LoadMany returns requisitions with their lines in the order of ids.
// A missing id is a NOT_FOUND error.
func (s *Service) LoadMany(ctx context.Context, ids []id.ID) ([]*Requisition, error) {
	if len(ids) == 0 {
		return nil, apperror.NewValidation("informe ao menos uma requisição")
	}

	reqs, err := s.repo.GetByIDs(ctx, appctx.GetCompanyID(ctx), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[id.ID]*Requisition, len(reqs))
	for _, r := range reqs {
		byID[r.ID] = r
	}

	ordered := make([]*Requisition, 0, len(ids))
	for _, reqID := range ids {
		r, ok := byID[reqID]
		if !ok {
			return nil, apperror.NewNotFound("requisição", reqID)
		}
		ordered = append(ordered, r)
	}

	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	for _, it := range items {
		if r, ok := byID[it.RequisitionID]; ok {
			r.Items = append(r.Items, it)
		}
	}
	return ordered, nil
}

// List returns a page of requisitions of the current company.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Requisition], error) {
	return s.repo.List(ctx, appctx.GetCompanyID(ctx), filter)
}

// Transition moves a requisition from its current state to to.
func (s *Service) Transition(ctx context.Context, reqID id.ID, to workflow.State, payload map[string]any) (*workflow.Log, error) {
	req, err := s.repo.GetByID(ctx, appctx.GetCompanyID(ctx), reqID)
	if err != nil {
		return nil, err
	}
	return s.workflow.Transition(ctx, workflow.TransitionRequest{
		Kind:      workflow.KindRequisition,
		CompanyID: req.CompanyID,
		EntityID:  req.ID,
		From:      req.WorkflowState,
		To:        to,
		ActorID:   appctx.GetUserID(ctx),
		Payload:   payload,
	})
}
