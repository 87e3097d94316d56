package numerator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries(t *testing.T) {
	at := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		series  Series
		wantKey string
		wantNum string
	}{
		{"requisitions", Requisitions("c1"), "c1:REQ_2026", "REQ-2026-00007"},
		{"orders", Orders("c1"), "c1:PED_2026", "PED-2026-00007"},
		{"global narrow", Series{Prefix: "X", Width: 3}, "X_2026", "X-2026-007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantKey, tt.series.Key(at))
			assert.Equal(t, tt.wantNum, tt.series.Format(at, 7))
		})
	}
}

func TestMemory_CountsPerCompanyAndYear(t *testing.T) {
	ctx := context.Background()
	gen := NewMemory()
	y26 := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	y27 := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	gen.Seed(Requisitions("a"), y26, 41)

	got, err := gen.Next(ctx, Requisitions("a"), y26)
	require.NoError(t, err)
	assert.Equal(t, "REQ-2026-00042", got)

	got, _ = gen.Next(ctx, Requisitions("b"), y26)
	assert.Equal(t, "REQ-2026-00001", got)

	got, _ = gen.Next(ctx, Requisitions("a"), y27)
	assert.Equal(t, "REQ-2027-00001", got)
}

func TestQuotationNumber(t *testing.T) {
	assert.Equal(t, "COT-2026-00042", QuotationNumber("REQ-2026-00042"))
}
