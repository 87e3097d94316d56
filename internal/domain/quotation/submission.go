package quotation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/core/numerator"
	"compras/internal/core/tx"
	"compras/internal/domain"
	"compras/internal/domain/workflow"
	"compras/pkg/logger"
)

// EventSubmitted is the outbox event type written for every submitted cycle.
const EventSubmitted = "quotation.submitted"

// DefaultFanOut bounds concurrent offer inserts.
const DefaultFanOut = 8

// TransitionFailure is a requisition that could not be moved to em_cotacao.
type TransitionFailure struct {
	RequisitionID     id.ID  `json:"requisicao_id"`
	RequisitionNumber string `json:"numero_requisicao"`
	Error             string `json:"erro"`
}

// SubmitResult reports what a submission wrote.
type SubmitResult struct {
	Cycle          *Cycle              `json:"cotacao"`
	SupplierQuotes []SupplierQuote     `json:"fornecedores"`
	ItemQuotes     int                 `json:"itens_cotados"`
	Transitioned   []id.ID             `json:"requisicoes_atualizadas"`
	Failures       []TransitionFailure `json:"falhas,omitempty"`
}

// Submitter persists a validated session.
type Submitter struct {
	repo         Repository
	loader       RequisitionLoader
	requisitions RequisitionTransitioner
	numerator    numerator.Generator
	events       domain.EventPublisher
	snapshots    Snapshotter
	txManager    tx.Manager
	fanOut       int
	now          func() time.Time
}

// NewSubmitter creates a submitter. fanOut <= 0 means DefaultFanOut.
func NewSubmitter(
	repo Repository,
	loader RequisitionLoader,
	requisitions RequisitionTransitioner,
	gen numerator.Generator,
	events domain.EventPublisher,
	snapshots Snapshotter,
	txManager tx.Manager,
	fanOut int,
) *Submitter {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}
	return &Submitter{
		repo:         repo,
		loader:       loader,
		requisitions: requisitions,
		numerator:    gen,
		events:       events,
		snapshots:    snapshots,
		txManager:    txManager,
		fanOut:       fanOut,
		now:          time.Now,
	}
}

// Submit reloads the requisitions, reconciles the session's origin lines with
// them and runs the gate. When it passes it writes the cycle, its supplier
// rows and one offer row per (supplier, origin line), then moves every
// requisition to em_cotacao.
//
// The cycle header is transactional. Offer rows are inserted concurrently and
// the first failure cancels the rest without undoing rows already written.
// Requisition transitions are independent: a failure is logged and reported
// in the result while the others proceed.
func (s *Submitter) Submit(ctx context.Context, session *Session) (*SubmitResult, error) {
	reqs, err := s.loader.LoadMany(ctx, requisitionIDs(session))
	if err != nil {
		return nil, err
	}
	if err := session.Reconcile(reqs); err != nil {
		return nil, err
	}
	if err := Validate(session); err != nil {
		return nil, err
	}

	now := s.now()
	companyID := appctx.GetCompanyID(ctx)
	summary := Summarize(session)

	cycle := &Cycle{
		ID:            id.New(),
		CompanyID:     companyID,
		Type:          session.Type,
		QuoteDate:     session.QuoteDate,
		Deadline:      session.Deadline,
		InternalNotes: optional(session.InternalNotes),
		WorkflowState: workflow.QuoteOpen,
		Status:        string(workflow.QuoteOpen),
		TotalValue:    summary.BestTotal,
		CreatedBy:     appctx.GetUserID(ctx),
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if cycle.Deadline.IsZero() {
		cycle.Deadline = cycle.QuoteDate.Add(DefaultResponseWindow)
	}
	for _, r := range session.Requisitions {
		cycle.RequisitionIDs = append(cycle.RequisitionIDs, r.ID)
	}
	if best, ok := session.Supplier(summary.BestSupplierKey); ok {
		cycle.BestSupplierID = optional(best.SupplierID)
	}

	quotes := make([]SupplierQuote, 0, len(session.Suppliers))
	quoteIDs := make(map[string]id.ID, len(session.Suppliers))
	for i, sup := range session.Suppliers {
		if !sup.Assigned() {
			continue
		}
		total := summary.Suppliers[i]
		q := SupplierQuote{
			ID:           id.New(),
			CycleID:      cycle.ID,
			CompanyID:    companyID,
			SupplierID:   sup.SupplierID,
			Freight:      sup.Freight,
			Tax:          sup.Tax,
			DiscountPct:  sup.DiscountPct,
			DiscountAbs:  sup.DiscountAbs,
			LeadTimeDays: sup.LeadTimeDays,
			PaymentTerms: optional(sup.PaymentTerms),
			Notes:        optional(sup.Notes),
			Subtotal:     total.Subtotal,
			Total:        total.Total,
			CreatedAt:    now.UTC(),
		}
		quotes = append(quotes, q)
		quoteIDs[sup.Key] = q.ID
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Quote cycles draw from the requisition counter and swap the prefix.
		seq, err := s.numerator.Next(ctx, numerator.Requisitions(companyID), now)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		cycle.Number = numerator.QuotationNumber(seq)

		if err := s.repo.CreateCycle(ctx, cycle); err != nil {
			return fmt.Errorf("create cycle: %w", err)
		}
		for i := range quotes {
			if err := s.repo.CreateSupplierQuote(ctx, &quotes[i]); err != nil {
				return fmt.Errorf("create supplier quote %s: %w", quotes[i].SupplierID, err)
			}
		}
		if err := s.events.Publish(ctx, domain.Event{
			AggregateType: string(workflow.KindQuote),
			AggregateID:   cycle.ID,
			EventType:     EventSubmitted,
			Payload: map[string]any{
				"numero_cotacao": cycle.Number,
				"tipo_cotacao":   cycle.Type,
				"requisicoes":    cycle.RequisitionIDs,
				"fornecedores":   len(quotes),
				"valor_total":    cycle.TotalValue,
			},
		}); err != nil {
			return fmt.Errorf("publish event: %w", err)
		}
		return s.snapshots.Snapshot(ctx, string(workflow.KindQuote), cycle.ID, map[string]any{
			"sessao":  session,
			"resumo":  summary,
			"rateio":  Allocate(ctx, session),
			"ciclo":   cycle.Number,
			"enviado": now.UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Cycle: cycle, SupplierQuotes: quotes}

	offers := s.offers(session, quoteIDs, now)
	if err := s.insertOffers(ctx, offers); err != nil {
		logger.Error(ctx, "quotation offers insert failed",
			"cycle", cycle.Number,
			"offers", len(offers),
			"error", err)
		return result, err
	}
	result.ItemQuotes = len(offers)

	for _, ref := range session.Requisitions {
		_, err := s.requisitions.Transition(ctx, ref.ID, workflow.RequisitionInQuotation, map[string]any{
			"cotacao_ciclo_id": cycle.ID,
			"numero_cotacao":   cycle.Number,
		})
		if err != nil {
			logger.Warn(ctx, "requisition not moved to quotation",
				"requisition", ref.Number,
				"cycle", cycle.Number,
				"error", err)
			result.Failures = append(result.Failures, TransitionFailure{
				RequisitionID:     ref.ID,
				RequisitionNumber: ref.Number,
				Error:             err.Error(),
			})
			continue
		}
		result.Transitioned = append(result.Transitioned, ref.ID)
	}

	logger.Info(ctx, "quotation submitted",
		"cycle", cycle.Number,
		"type", cycle.Type,
		"suppliers", len(quotes),
		"offers", result.ItemQuotes,
		"transition_failures", len(result.Failures))
	return result, nil
}

// offers expands priced cells of assigned suppliers over selected items into
// one row per origin line. The row total uses the same effective unit price
// as the allocation.
func (s *Submitter) offers(session *Session, quoteIDs map[string]id.ID, now time.Time) []*ItemQuote {
	var out []*ItemQuote
	for _, sup := range session.Suppliers {
		quoteID, ok := quoteIDs[sup.Key]
		if !ok {
			continue
		}
		for _, it := range session.SelectedItems() {
			cell := session.Cell(sup.Key, it.Key)
			if !cell.Priced() {
				continue
			}
			unit := EffectiveUnitPrice(cell)
			for _, line := range it.Lines {
				out = append(out, &ItemQuote{
					ID:                id.New(),
					SupplierQuoteID:   quoteID,
					RequisitionItemID: line.ItemID,
					MaterialID:        it.MaterialID,
					Quantity:          line.Quantity,
					UnitPrice:         cell.UnitPrice,
					DiscountPct:       cell.DiscountPct,
					DiscountAbs:       cell.DiscountAbs,
					Total:             line.Quantity.Mul(unit),
					LeadTimeDays:      cell.LeadTimeDays,
					PaymentTerms:      optional(cell.PaymentTerms),
					Notes:             optional(cell.Notes),
					Winner:            cell.Winner,
					CreatedAt:         now.UTC(),
				})
			}
		}
	}
	return out
}

func requisitionIDs(session *Session) []id.ID {
	ids := make([]id.ID, 0, len(session.Requisitions))
	seen := make(map[id.ID]bool, len(session.Requisitions))
	for _, r := range session.Requisitions {
		if !seen[r.ID] {
			seen[r.ID] = true
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (s *Submitter) insertOffers(ctx context.Context, offers []*ItemQuote) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOut)
	for _, q := range offers {
		g.Go(func() error {
			if err := s.repo.CreateItemQuote(gctx, q); err != nil {
				return fmt.Errorf("create offer for line %s: %w", q.RequisitionItemID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
