package quotation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/id"
	"compras/internal/domain/workflow"
)

type cycleRepo struct {
	fakeRepo
	expired []Cycle
}

func (r *cycleRepo) ListExpired(context.Context, time.Time, int) ([]Cycle, error) {
	return r.expired, nil
}

type wfStore struct {
	failFor id.ID
	logs    []workflow.Log
}

func (s *wfStore) UpdateState(_ context.Context, _, _ string, entityID id.ID, _, _ workflow.State, _ string) error {
	if entityID == s.failFor {
		return errors.New("row changed")
	}
	return nil
}

func (s *wfStore) AppendLog(_ context.Context, entry *workflow.Log) error {
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *wfStore) ListLogs(context.Context, string, workflow.Kind, id.ID) ([]workflow.Log, error) {
	return s.logs, nil
}

func TestExpireOverdue(t *testing.T) {
	open := Cycle{ID: id.New(), CompanyID: "c1", Number: "COT-2026-00001", WorkflowState: workflow.QuoteOpen}
	failing := Cycle{ID: id.New(), CompanyID: "c2", Number: "COT-2026-00002", WorkflowState: workflow.QuoteOpen}
	approved := Cycle{ID: id.New(), CompanyID: "c1", Number: "COT-2026-00003", WorkflowState: workflow.QuoteApproved}

	repo := &cycleRepo{expired: []Cycle{open, failing, approved}}
	store := &wfStore{failFor: failing.ID}
	c := NewCycles(repo, workflow.NewService(store, &fakeTx{}))

	n, err := c.ExpireOverdue(context.Background(), quoteDay, 50)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.logs, 1)
	assert.Equal(t, open.ID, store.logs[0].EntityID)
	assert.Equal(t, workflow.QuoteRejected, store.logs[0].ToState)
	assert.Equal(t, SystemActor, store.logs[0].ActorID)
}
