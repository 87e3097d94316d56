package approval

import (
	"context"

	appctx "compras/internal/core/context"
)

// Repository reads approval configs.
type Repository interface {
	ListActive(ctx context.Context, companyID string, process ProcessType) ([]Config, error)
}

// Service routes processes of the current company.
type Service struct {
	repo   Repository
	router *Router
}

// NewService creates an approval service.
func NewService(repo Repository, router *Router) *Service {
	return &Service{repo: repo, router: router}
}

// Route loads the company's configs for the process type and routes f.
func (s *Service) Route(ctx context.Context, f Facts) (*Decision, error) {
	configs, err := s.repo.ListActive(ctx, appctx.GetCompanyID(ctx), f.ProcessType)
	if err != nil {
		return nil, err
	}
	return s.router.Route(ctx, configs, f)
}

// CheckCondition validates a CEL condition before a config is saved.
func (s *Service) CheckCondition(condition string) error {
	return s.router.Check(condition)
}
