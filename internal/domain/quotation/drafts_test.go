package quotation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
)

type memDrafts struct {
	items map[DraftKey]*Draft
	ttl   time.Duration
}

func (m *memDrafts) Save(_ context.Context, key DraftKey, d *Draft, ttl time.Duration) error {
	m.items[key] = d
	m.ttl = ttl
	return nil
}

func (m *memDrafts) Load(_ context.Context, key DraftKey) (*Draft, error) {
	d, ok := m.items[key]
	if !ok {
		return nil, apperror.NewNotFound("rascunho", key.DraftID)
	}
	return d, nil
}

func (m *memDrafts) Delete(_ context.Context, key DraftKey) error {
	if _, ok := m.items[key]; !ok {
		return apperror.NewNotFound("rascunho", key.DraftID)
	}
	delete(m.items, key)
	return nil
}

func draftCtx(userID string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID, CompanyID: "c1"})
}

func TestDrafts_RoundTrip(t *testing.T) {
	store := &memDrafts{items: map[DraftKey]*Draft{}}
	drafts := NewDrafts(store, 0)
	drafts.now = func() time.Time { return quoteDay }

	saved, err := drafts.Save(draftCtx("u1"), "cot-marco", readySession(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultDraftTTL, store.ttl)
	assert.Equal(t, "u1", saved.SavedBy)
	assert.Contains(t, store.items, DraftKey{CompanyID: "c1", UserID: "u1", DraftID: "cot-marco"})

	loaded, err := drafts.Load(draftCtx("u1"), "cot-marco")
	require.NoError(t, err)
	assert.Len(t, loaded.Session.Suppliers, 2)

	_, err = drafts.Load(draftCtx("u2"), "cot-marco")
	assert.True(t, apperror.IsNotFound(err), "drafts are per user")

	require.NoError(t, drafts.Delete(draftCtx("u1"), "cot-marco"))
	_, err = drafts.Load(draftCtx("u1"), "cot-marco")
	assert.True(t, apperror.IsNotFound(err))
}

func TestDrafts_Rejects(t *testing.T) {
	drafts := NewDrafts(&memDrafts{items: map[DraftKey]*Draft{}}, time.Hour)

	_, err := drafts.Save(draftCtx("u1"), "  ", readySession(t))
	assert.Error(t, err)

	_, err = drafts.Save(context.Background(), "x", readySession(t))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnauthorized, appErr.Code)

	_, err = drafts.Save(draftCtx("u1"), "x", nil)
	assert.Error(t, err)
}
