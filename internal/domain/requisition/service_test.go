package requisition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/core/numerator"
	"compras/internal/core/tx"
	"compras/internal/core/types"
	"compras/internal/domain"
	"compras/internal/domain/workflow"
)

type memRepo struct {
	reqs    map[id.ID]*Requisition
	items   []Item
	itemErr error
}

func newMemRepo() *memRepo { return &memRepo{reqs: map[id.ID]*Requisition{}} }

func (m *memRepo) Create(_ context.Context, r *Requisition) error {
	cp := *r
	cp.Items = nil
	m.reqs[r.ID] = &cp
	return nil
}

func (m *memRepo) CreateItem(_ context.Context, it *Item) error {
	if m.itemErr != nil {
		return m.itemErr
	}
	m.items = append(m.items, *it)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, companyID string, reqID id.ID) (*Requisition, error) {
	r, ok := m.reqs[reqID]
	if !ok || r.CompanyID != companyID {
		return nil, apperror.NewNotFound("requisição", reqID)
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) GetByIDs(ctx context.Context, companyID string, ids []id.ID) ([]*Requisition, error) {
	var out []*Requisition
	for _, reqID := range ids {
		if r, err := m.GetByID(ctx, companyID, reqID); err == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) GetItems(_ context.Context, reqIDs []id.ID) ([]Item, error) {
	var out []Item
	for _, it := range m.items {
		for _, reqID := range reqIDs {
			if it.RequisitionID == reqID {
				out = append(out, it)
			}
		}
	}
	return out, nil
}

func (m *memRepo) List(context.Context, string, ListFilter) (domain.ListResult[*Requisition], error) {
	return domain.ListResult[*Requisition]{}, nil
}

type memStore struct {
	states map[id.ID]workflow.State
	logs   []workflow.Log
}

func (m *memStore) UpdateState(_ context.Context, _, _ string, entityID id.ID, _, to workflow.State, _ string) error {
	m.states[entityID] = to
	return nil
}

func (m *memStore) AppendLog(_ context.Context, entry *workflow.Log) error {
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memStore) ListLogs(context.Context, string, workflow.Kind, id.ID) ([]workflow.Log, error) {
	return m.logs, nil
}

var createdAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newService() (*Service, *memRepo, *memStore) {
	repo := newMemRepo()
	store := &memStore{states: map[id.ID]workflow.State{}}
	svc := NewService(repo, workflow.NewService(store, tx.Inline), numerator.NewMemory(), tx.Inline)
	svc.now = func() time.Time { return createdAt }
	return svc, repo, store
}

func ctxFor(company string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u1", CompanyID: company})
}

func newRequisition(t Type) *Requisition {
	cc := "cc-1"
	return &Requisition{
		Type:         t,
		Priority:     "normal",
		CostCenterID: &cc,
		Items: []Item{
			{MaterialID: "m1", Quantity: types.MustMoney("2"), EstimatedUnitPrice: types.MustMoney("10.5")},
			{MaterialID: "m2", Quantity: types.MustMoney("1.5"), EstimatedUnitPrice: types.MustMoney("4"), Unit: "KG"},
		},
	}
}

func TestCreate_NumbersAndStoresLines(t *testing.T) {
	svc, repo, _ := newService()
	req := newRequisition(TypeReplenishment)

	require.NoError(t, svc.Create(ctxFor("c1"), req))

	assert.Equal(t, "REQ-2026-00001", req.Number)
	assert.Equal(t, "c1", req.CompanyID)
	assert.Equal(t, "u1", req.RequesterID)
	assert.Equal(t, workflow.RequisitionCreated, req.WorkflowState)
	assert.True(t, req.EstimatedTotal.Equal(types.MustMoney("27")))

	require.Len(t, repo.items, 2)
	assert.Equal(t, "UN", repo.items[0].Unit)
	assert.Equal(t, "KG", repo.items[1].Unit)
	for _, it := range repo.items {
		assert.Equal(t, req.ID, it.RequisitionID)
	}
}

func TestCreate_EmergencyStartsPendingApproval(t *testing.T) {
	svc, _, _ := newService()
	req := newRequisition(TypeEmergency)

	require.NoError(t, svc.Create(ctxFor("c1"), req))

	assert.True(t, req.IsEmergency)
	assert.Equal(t, workflow.RequisitionPendingApproval, req.WorkflowState)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Requisition)
		field  string
	}{
		{"unknown type", func(r *Requisition) { r.Type = "urgente" }, "tipo_requisicao"},
		{"no cost center", func(r *Requisition) { r.CostCenterID = nil }, "centro_custo_id"},
		{"no lines", func(r *Requisition) { r.Items = nil }, "itens"},
		{"zero quantity", func(r *Requisition) { r.Items[1].Quantity = types.Zero() }, "itens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newService()
			req := newRequisition(TypeReplenishment)
			tt.mutate(req)

			err := svc.Create(ctxFor("c1"), req)

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
			assert.Empty(t, repo.reqs)
		})
	}
}

func TestCreate_LineFailureIsReturned(t *testing.T) {
	svc, repo, _ := newService()
	repo.itemErr = errors.New("fk violation")

	err := svc.Create(ctxFor("c1"), newRequisition(TypeReplenishment))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create requisition item 1")
}

func TestLoadMany_KeepsRequestedOrder(t *testing.T) {
	svc, _, _ := newService()
	ctx := ctxFor("c1")
	first, second := newRequisition(TypeReplenishment), newRequisition(TypeDirectPurchase)
	require.NoError(t, svc.Create(ctx, first))
	require.NoError(t, svc.Create(ctx, second))

	got, err := svc.LoadMany(ctx, []id.ID{second.ID, first.ID})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
	assert.Len(t, got[0].Items, 2)
}

func TestLoadMany_OtherCompanyIsNotFound(t *testing.T) {
	svc, _, _ := newService()
	req := newRequisition(TypeReplenishment)
	require.NoError(t, svc.Create(ctxFor("c1"), req))

	_, err := svc.LoadMany(ctxFor("c2"), []id.ID{req.ID})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.LoadMany(ctxFor("c1"), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestTransition_FollowsMachine(t *testing.T) {
	svc, _, store := newService()
	ctx := ctxFor("c1")
	req := newRequisition(TypeReplenishment)
	require.NoError(t, svc.Create(ctx, req))

	entry, err := svc.Transition(ctx, req.ID, workflow.RequisitionPendingApproval, map[string]any{"motivo": "ok"})
	require.NoError(t, err)
	assert.Equal(t, workflow.RequisitionCreated, entry.FromState)
	assert.Equal(t, workflow.RequisitionPendingApproval, store.states[req.ID])
	require.Len(t, store.logs, 1)

	_, err = svc.Transition(ctx, req.ID, workflow.RequisitionInQuotation, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}
