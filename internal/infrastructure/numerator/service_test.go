package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "compras/internal/core/numerator"
)

type row struct {
	val int64
	err error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// sequences simulates compras.sequencias: the first arg is the key, the
// second the increment.
type sequences struct {
	mu    sync.Mutex
	value map[string]int64
	calls int
	err   error
}

func newSequences() *sequences {
	return &sequences{value: map[string]int64{}}
}

func (q *sequences) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return row{err: q.err}
	}
	key := args[0].(string)
	q.value[key] += args[1].(int64)
	return row{val: q.value[key]}
}

var march = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestNext_GaplessByDefault(t *testing.T) {
	q := newSequences()
	svc := New(q)

	first, err := svc.Next(context.Background(), corenumerator.Requisitions("c1"), march)
	require.NoError(t, err)
	second, err := svc.Next(context.Background(), corenumerator.Requisitions("c1"), march)
	require.NoError(t, err)

	assert.Equal(t, "REQ-2026-00001", first)
	assert.Equal(t, "REQ-2026-00002", second)
	assert.Equal(t, 2, q.calls)
}

func TestNext_CompaniesDoNotShareSeries(t *testing.T) {
	svc := New(newSequences())

	a, err := svc.Next(context.Background(), corenumerator.Requisitions("a"), march)
	require.NoError(t, err)
	b, err := svc.Next(context.Background(), corenumerator.Requisitions("b"), march)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNext_RangeServesFromMemory(t *testing.T) {
	q := newSequences()
	svc := New(q, WithRange(corenumerator.PrefixPurchaseOrder, 10))
	orders := corenumerator.Orders("c1")

	for i := 0; i < 12; i++ {
		_, err := svc.Next(context.Background(), orders, march)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, q.calls)

	num, err := svc.Next(context.Background(), orders, march)
	require.NoError(t, err)
	assert.Equal(t, "PED-2026-00013", num)

	// requisitions stay gapless
	_, err = svc.Next(context.Background(), corenumerator.Requisitions("c1"), march)
	require.NoError(t, err)
	assert.Equal(t, 3, q.calls)
}

func TestNext_WrapsDatabaseError(t *testing.T) {
	q := newSequences()
	q.err = errors.New("connection reset")

	_, err := New(q).Next(context.Background(), corenumerator.Requisitions("c1"), march)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1:REQ_2026")
}
