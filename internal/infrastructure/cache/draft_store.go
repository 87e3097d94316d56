package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"compras/internal/core/apperror"
	"compras/internal/domain/quotation"
)

const draftKeyPrefix = "compras:rascunho"

// DraftStore keeps quotation drafts in Redis as JSON with an expiry.
type DraftStore struct {
	rdb *redis.Client
}

// NewDraftStore creates a Redis draft store.
func NewDraftStore(rdb *redis.Client) *DraftStore {
	return &DraftStore{rdb: rdb}
}

// DraftRedisKey returns the Redis key of a draft.
func DraftRedisKey(key quotation.DraftKey) string {
	return fmt.Sprintf("%s:%s:%s:%s", draftKeyPrefix, key.CompanyID, key.UserID, key.DraftID)
}

func (s *DraftStore) Save(ctx context.Context, key quotation.DraftKey, d *quotation.Draft, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.rdb.Set(ctx, DraftRedisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *DraftStore) Load(ctx context.Context, key quotation.DraftKey) (*quotation.Draft, error) {
	data, err := s.rdb.Get(ctx, DraftRedisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewNotFound("rascunho", key.DraftID)
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}

	var d quotation.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &d, nil
}

func (s *DraftStore) Delete(ctx context.Context, key quotation.DraftKey) error {
	n, err := s.rdb.Del(ctx, DraftRedisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("rascunho", key.DraftID)
	}
	return nil
}

var _ quotation.DraftStore = (*DraftStore)(nil)
