package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCompany_CopiesUser(t *testing.T) {
	admin := &UserContext{UserID: "a1", CompanyID: "c1", IsAdmin: true}
	ctx := WithUser(context.Background(), admin)

	scoped := WithCompany(ctx, "c2")

	assert.Equal(t, "c2", GetCompanyID(scoped))
	assert.Equal(t, "a1", GetUserID(scoped))
	assert.Equal(t, "c1", admin.CompanyID)
}

func TestDetached_KeepsValuesDropsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(WithUser(context.Background(), &UserContext{UserID: "u1"}))
	ctx = WithTrace(ctx, NewTraceContext("t1", ""))
	cancel()

	d := Detached(ctx)

	require.NoError(t, d.Err())
	assert.Equal(t, "u1", GetUserID(d))
	assert.Equal(t, "t1", GetTrace(d).TraceID)
	assert.NotEmpty(t, GetTrace(d).RequestID)
}
