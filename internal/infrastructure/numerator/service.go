// Package numerator draws document numbers from the compras.sequencias
// table.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "compras/internal/core/numerator"
)

// Querier is the part of pgx the service needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service hands out numbers one row update at a time, which keeps a
// series free of gaps. Prefixes registered with WithRange instead reserve
// blocks and serve them from memory; a restart loses the rest of a block.
type Service struct {
	querier    Querier
	rangeSizes map[string]int64

	mu     sync.Mutex
	ranges map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithRange makes prefix reserve size numbers per database round trip.
func WithRange(prefix string, size int64) Option {
	return func(s *Service) {
		if size > 1 {
			s.rangeSizes[prefix] = size
		}
	}
}

// New creates a numerator. Numbers are drawn outside business transactions
// so a rolled back document does not hold the counter row lock; the pool
// is the usual querier.
func New(querier Querier, opts ...Option) *Service {
	s := &Service{
		querier:    querier,
		rangeSizes: make(map[string]int64),
		ranges:     make(map[string]*cachedRange),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const advanceSQL = `
	INSERT INTO compras.sequencias (chave, valor_atual)
	VALUES ($1, $2)
	ON CONFLICT (chave) DO UPDATE SET valor_atual = compras.sequencias.valor_atual + $2
	RETURNING valor_atual`

// Next returns the next number of series for the year of at.
func (s *Service) Next(ctx context.Context, series corenumerator.Series, at time.Time) (string, error) {
	key := series.Key(at)

	var (
		n   int64
		err error
	)
	if size, ok := s.rangeSizes[series.Prefix]; ok {
		n, err = s.nextFromRange(ctx, key, size)
	} else {
		n, err = s.advance(ctx, key, 1)
	}
	if err != nil {
		return "", fmt.Errorf("next %s: %w", key, err)
	}
	return series.Format(at, n), nil
}

func (s *Service) advance(ctx context.Context, key string, by int64) (int64, error) {
	var n int64
	if err := s.querier.QueryRow(ctx, advanceSQL, key, by).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Service) nextFromRange(ctx context.Context, key string, size int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}
	if rng.current >= rng.max {
		top, err := s.advance(ctx, key, size)
		if err != nil {
			return 0, err
		}
		// reserved block is (top-size, top]
		rng.current, rng.max = top-size, top
	}
	rng.current++
	return rng.current, nil
}
