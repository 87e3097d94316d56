package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compras/internal/core/id"
	"compras/internal/domain/approval"
)

type countingRepo struct {
	calls map[string]int
}

func (r *countingRepo) ListActive(_ context.Context, companyID string, process approval.ProcessType) ([]approval.Config, error) {
	r.calls[companyID]++
	return []approval.Config{{ID: id.New(), CompanyID: companyID, ProcessType: process, Level: 1, Active: true}}, nil
}

func TestConfigCache_LoadsOnce(t *testing.T) {
	repo := &countingRepo{calls: map[string]int{}}
	c := NewConfigCache(nil, repo)
	ctx := context.Background()

	for range 3 {
		configs, err := c.ListActive(ctx, "c1", approval.ProcessRequisition)
		require.NoError(t, err)
		require.Len(t, configs, 1)
	}
	assert.Equal(t, 1, repo.calls["c1"])
}

func TestConfigCache_Notification(t *testing.T) {
	repo := &countingRepo{calls: map[string]int{}}
	c := NewConfigCache(nil, repo)
	c.ctx = context.Background()
	ctx := context.Background()

	var got []string
	c.OnInvalidation(func(channel, payload string) { got = append(got, channel+"="+payload) })
	c.OnInvalidation(func(string, string) { panic("boom") })

	_, _ = c.ListActive(ctx, "c1", approval.ProcessRequisition)
	_, _ = c.ListActive(ctx, "c2", approval.ProcessRequisition)

	c.handleNotification(ChannelApprovalConfig, "c1")
	c.handleNotification(ChannelSchema, "compras.requisicoes_compra")

	_, _ = c.ListActive(ctx, "c1", approval.ProcessRequisition)
	_, _ = c.ListActive(ctx, "c2", approval.ProcessRequisition)

	assert.Equal(t, 2, repo.calls["c1"])
	assert.Equal(t, 1, repo.calls["c2"])
	assert.Equal(t, []string{
		ChannelApprovalConfig + "=c1",
		ChannelSchema + "=compras.requisicoes_compra",
	}, got)
}
