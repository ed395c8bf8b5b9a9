package metrics

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestRecordAttempt(t *testing.T) {
	before := testutil.ToFloat64(AuthAttempts.WithLabelValues("magicLink", "success"))
	RecordAttempt("magicLink", "")
	require.Equal(t, before+1, testutil.ToFloat64(AuthAttempts.WithLabelValues("magicLink", "success")))

	before = testutil.ToFloat64(AuthLockouts)
	RecordLockout()
	require.Equal(t, before+1, testutil.ToFloat64(AuthLockouts))
}

func TestPoolCollectorWithoutPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPool(reg, func() *pgxpool.Pool { return nil }))
	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, mfs)
}
