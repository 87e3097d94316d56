package quotation

import (
	"context"
	"strings"
	"time"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
)

// DefaultDraftTTL is how long a saved draft is kept.
const DefaultDraftTTL = 7 * 24 * time.Hour

// Draft is a saved working session.
type Draft struct {
	ID      string    `json:"id"`
	Session *Session  `json:"sessao"`
	SavedAt time.Time `json:"salvo_em"`
	SavedBy string    `json:"salvo_por"`
}

// DraftKey identifies a draft of one user in one company.
type DraftKey struct {
	CompanyID string
	UserID    string
	DraftID   string
}

// DraftStore keeps drafts with an expiry. Load and Delete return a not found
// error for missing or expired drafts.
type DraftStore interface {
	Save(ctx context.Context, key DraftKey, d *Draft, ttl time.Duration) error
	Load(ctx context.Context, key DraftKey) (*Draft, error)
	Delete(ctx context.Context, key DraftKey) error
}

// Drafts saves and restores working sessions of the current user.
type Drafts struct {
	store DraftStore
	ttl   time.Duration
	now   func() time.Time
}

// NewDrafts creates the draft service. A non-positive ttl uses DefaultDraftTTL.
func NewDrafts(store DraftStore, ttl time.Duration) *Drafts {
	if ttl <= 0 {
		ttl = DefaultDraftTTL
	}
	return &Drafts{store: store, ttl: ttl, now: time.Now}
}

func (d *Drafts) key(ctx context.Context, draftID string) (DraftKey, error) {
	draftID = strings.TrimSpace(draftID)
	if draftID == "" {
		return DraftKey{}, apperror.NewValidation("id do rascunho é obrigatório")
	}
	user := appctx.GetUser(ctx)
	if user == nil || user.UserID == "" {
		return DraftKey{}, apperror.NewUnauthorized("usuário não autenticado")
	}
	return DraftKey{CompanyID: user.CompanyID, UserID: user.UserID, DraftID: draftID}, nil
}

// Save stores the session under draftID, replacing an earlier save.
func (d *Drafts) Save(ctx context.Context, draftID string, s *Session) (*Draft, error) {
	key, err := d.key(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperror.NewValidation("sessão é obrigatória")
	}
	if err := s.Normalize(); err != nil {
		return nil, err
	}

	draft := &Draft{
		ID:      key.DraftID,
		Session: s,
		SavedAt: d.now().UTC(),
		SavedBy: key.UserID,
	}
	if err := d.store.Save(ctx, key, draft, d.ttl); err != nil {
		return nil, err
	}
	return draft, nil
}

// Load returns a saved draft.
func (d *Drafts) Load(ctx context.Context, draftID string) (*Draft, error) {
	key, err := d.key(ctx, draftID)
	if err != nil {
		return nil, err
	}
	draft, err := d.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if draft.Session == nil {
		return nil, apperror.NewNotFound("rascunho", key.DraftID)
	}
	if err := draft.Session.Normalize(); err != nil {
		return nil, err
	}
	return draft, nil
}

// Delete discards a saved draft.
func (d *Drafts) Delete(ctx context.Context, draftID string) error {
	key, err := d.key(ctx, draftID)
	if err != nil {
		return err
	}
	return d.store.Delete(ctx, key)
}
