package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/internal/core/numerator"
	"compras/internal/core/tx"
	"compras/internal/domain/workflow"
)

type memRepo struct{ orders map[id.ID]*Order }

func (m *memRepo) Create(_ context.Context, o *Order) error {
	m.orders[o.ID] = o
	return nil
}

func (m *memRepo) GetByID(_ context.Context, companyID string, orderID id.ID) (*Order, error) {
	o, ok := m.orders[orderID]
	if !ok || o.CompanyID != companyID {
		return nil, apperror.NewNotFound("pedido", orderID)
	}
	return o, nil
}

type memStore struct{ logs []workflow.Log }

func (m *memStore) UpdateState(context.Context, string, string, id.ID, workflow.State, workflow.State, string) error {
	return nil
}

func (m *memStore) AppendLog(_ context.Context, entry *workflow.Log) error {
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memStore) ListLogs(context.Context, string, workflow.Kind, id.ID) ([]workflow.Log, error) {
	return m.logs, nil
}

func newService() (*Service, *memRepo, *memStore) {
	repo := &memRepo{orders: map[id.ID]*Order{}}
	store := &memStore{}
	svc := NewService(repo, workflow.NewService(store, tx.Inline), numerator.NewMemory())
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) }
	return svc, repo, store
}

func ctxFor(company string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u1", CompanyID: company})
}

func TestCreate(t *testing.T) {
	svc, repo, _ := newService()
	o := &Order{QuoteID: id.New(), SupplierID: "F-1"}

	require.NoError(t, svc.Create(ctxFor("c1"), o))

	assert.Equal(t, "PED-2026-00001", o.Number)
	assert.Equal(t, workflow.OrderOpen, o.WorkflowState)
	assert.Equal(t, "rascunho", o.Status)
	assert.Equal(t, "c1", o.CompanyID)
	assert.Contains(t, repo.orders, o.ID)
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newService()

	err := svc.Create(ctxFor("c1"), &Order{SupplierID: "F-1"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = svc.Create(ctxFor("c1"), &Order{QuoteID: id.New()})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestTransition(t *testing.T) {
	svc, _, store := newService()
	o := &Order{QuoteID: id.New(), SupplierID: "F-1"}
	require.NoError(t, svc.Create(ctxFor("c1"), o))

	entry, err := svc.Transition(ctxFor("c1"), o.ID, workflow.OrderApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, workflow.OrderOpen, entry.FromState)
	assert.Len(t, store.logs, 1)

	_, err = svc.Transition(ctxFor("c1"), o.ID, workflow.OrderFinished, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))

	_, err = svc.Transition(ctxFor("c2"), o.ID, workflow.OrderApproved, nil)
	assert.True(t, apperror.IsNotFound(err))
}
