package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rdb "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/guard"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.Now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, time.Minute, res.RetryAfter)

	// otra key no comparte cuota
	res, _ = l.Allow(ctx, "other")
	require.True(t, res.Allowed)

	now = now.Add(time.Minute)
	res, _ = l.Allow(ctx, "k")
	require.True(t, res.Allowed)
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := rdb.NewClient(&rdb.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewRedisLimiter(client, "", 3, time.Minute)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "t1:login:a@x.io")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, int64(2-i), res.Remaining)
	}
	res, err := l.Allow(ctx, "t1:login:a@x.io")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Greater(t, res.RetryAfter, time.Duration(0))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestQuotaGuard(t *testing.T) {
	g := NewQuotaGuard(NewMemoryLimiter(1, time.Minute))
	ctx := context.Background()
	req := guard.Request{TenantID: "t1", Op: "login", Key: "A@x.io"}

	require.NoError(t, g.Check(ctx, req))
	req.Key = "a@x.io "
	err := g.Check(ctx, req)
	require.True(t, autherr.Is(err, autherr.QuotaExceeded))

	// otro tenant, otra cuota
	req.TenantID = "t2"
	require.NoError(t, g.Check(ctx, req))
}

func TestQuotaGuardFailsOpen(t *testing.T) {
	g := NewQuotaGuard(failingLimiter{})
	require.NoError(t, g.Check(context.Background(), guard.Request{Op: "login", Key: "x"}))
}
