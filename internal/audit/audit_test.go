package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

func TestLogWritesAuditFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	Log(ctx, UserLocked, "t1", "u1", zap.Int("attempts", 5))
	Log(ctx, TenantCreated, "t2", "")

	entries := logs.All()
	require.Len(t, entries, 2)
	f := entries[0].ContextMap()
	assert.Equal(t, true, f["audit"])
	assert.Equal(t, UserLocked, f["event"])
	assert.Equal(t, "t1", f["tenant_id"])
	assert.Equal(t, "u1", f["user_id"])
	assert.EqualValues(t, 5, f["attempts"])

	_, hasUser := entries[1].ContextMap()["user_id"]
	assert.False(t, hasUser)
}
