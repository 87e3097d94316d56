// Package attachment stores files attached to requisitions and quotations
// in object storage.
package attachment

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"compras/internal/core/apperror"
	appctx "compras/internal/core/context"
	"compras/internal/core/id"
	"compras/pkg/logger"
)

// MaxSize is the largest accepted upload.
const MaxSize = 25 << 20

// Object describes a stored file.
type Object struct {
	Key          string    `json:"key"`
	Name         string    `json:"nome"`
	Size         int64     `json:"tamanho"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"modificado_em"`
}

// ObjectStore is the object storage backend. Get returns a not
// found error for missing keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Remove(ctx context.Context, key string) error
}

// Service manages attachments of the current company.
type Service struct {
	store ObjectStore
	now   func() time.Time
}

// NewService creates an attachment service.
func NewService(store ObjectStore) *Service {
	return &Service{store: store, now: time.Now}
}

// FoldName converts a file name to a storage-safe ASCII name: accents are
// stripped and anything outside [A-Za-z0-9._-] becomes '_'.
func FoldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		folded = name
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range folded {
		ok := r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-')
		if ok {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_.")
	if out == "" {
		return "arquivo"
	}
	return out
}

// Prefix returns the key prefix of a requisition's attachments.
func Prefix(companyID string, requisitionID id.ID) string {
	return fmt.Sprintf("%s/%s/", companyID, requisitionID)
}

// Key builds <company>/<requisition>/<yyyy/mm/dd>/<folded file name>.
func Key(companyID string, requisitionID id.ID, at time.Time, fileName string) string {
	return Prefix(companyID, requisitionID) + at.UTC().Format("2006/01/02") + "/" + FoldName(fileName)
}

func companyOf(ctx context.Context) (string, error) {
	companyID := appctx.GetCompanyID(ctx)
	if companyID == "" {
		return "", apperror.NewUnauthorized("empresa não identificada")
	}
	return companyID, nil
}

// Upload stores a file under the requisition. A file with the same name on
// the same day replaces the earlier one.
func (s *Service) Upload(ctx context.Context, requisitionID id.ID, fileName string, r io.Reader, size int64, contentType string) (*Object, error) {
	companyID, err := companyOf(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, apperror.NewValidation("nome do arquivo é obrigatório")
	}
	if size <= 0 || size > MaxSize {
		return nil, apperror.NewValidation(fmt.Sprintf("tamanho do arquivo deve estar entre 1 byte e %d MB", MaxSize>>20)).
			WithDetail("size", size)
	}

	key := Key(companyID, requisitionID, s.now(), fileName)
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	logger.Info(ctx, "attachment uploaded", "key", key, "size", size)

	return &Object{
		Key:          key,
		Name:         path.Base(key),
		Size:         size,
		ContentType:  contentType,
		LastModified: s.now().UTC(),
	}, nil
}

// List returns the attachments of a requisition.
func (s *Service) List(ctx context.Context, requisitionID id.ID) ([]Object, error) {
	companyID, err := companyOf(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, Prefix(companyID, requisitionID))
}

// Download opens an attachment. Keys of other companies are not found.
func (s *Service) Download(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	if err := s.own(ctx, key); err != nil {
		return nil, nil, err
	}
	return s.store.Get(ctx, key)
}

// Delete removes an attachment.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.own(ctx, key); err != nil {
		return err
	}
	if err := s.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	logger.Info(ctx, "attachment removed", "key", key)
	return nil
}

func (s *Service) own(ctx context.Context, key string) error {
	companyID, err := companyOf(ctx)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(key, companyID+"/") || strings.Contains(key, "..") {
		return apperror.NewNotFound("anexo", key)
	}
	return nil
}
