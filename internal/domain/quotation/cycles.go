package quotation

import (
	"context"
	"time"

	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/domain/workflow"
	"compras/pkg/logger"
)

// SystemActor is the actor recorded for transitions made by background jobs.
const SystemActor = "system"

// Cycles manages submitted quote cycles.
type Cycles struct {
	repo     Repository
	workflow *workflow.Service
}

// NewCycles creates the cycle service.
func NewCycles(repo Repository, wf *workflow.Service) *Cycles {
	return &Cycles{repo: repo, workflow: wf}
}

// Get returns a cycle of the current company.
func (c *Cycles) Get(ctx context.Context, cycleID id.ID) (*Cycle, error) {
	return c.repo.GetCycle(ctx, appctx.GetCompanyID(ctx), cycleID)
}

// Transition moves a cycle from its current state to to.
func (c *Cycles) Transition(ctx context.Context, cycleID id.ID, to workflow.State, payload map[string]any) (*workflow.Log, error) {
	cycle, err := c.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	return c.workflow.Transition(ctx, workflow.TransitionRequest{
		Kind:      workflow.KindQuote,
		CompanyID: cycle.CompanyID,
		EntityID:  cycle.ID,
		From:      cycle.WorkflowState,
		To:        to,
		ActorID:   appctx.GetUserID(ctx),
		Payload:   payload,
	})
}

// ExpireOverdue rejects open cycles whose response deadline has passed.
// Each cycle is handled on its own; a failure is logged and the rest go on.
// Returns how many cycles were rejected.
func (c *Cycles) ExpireOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	cycles, err := c.repo.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, cycle := range cycles {
		_, err := c.workflow.Transition(ctx, workflow.TransitionRequest{
			Kind:      workflow.KindQuote,
			CompanyID: cycle.CompanyID,
			EntityID:  cycle.ID,
			From:      cycle.WorkflowState,
			To:        workflow.QuoteRejected,
			ActorID:   SystemActor,
			Payload: map[string]any{
				"motivo":      "prazo de resposta expirado",
				"data_limite": cycle.Deadline,
			},
		})
		if err != nil {
			logger.Warn(ctx, "quote cycle not expired", "cycle", cycle.Number, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}
