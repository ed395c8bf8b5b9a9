package lockout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/store/adapters/memory"
)

func seed(t *testing.T) (*Tracker, repository.UserRepository, *repository.User) {
	t.Helper()
	users := memory.New().Users()
	u := &repository.User{TenantID: "t1", Email: "a@x.io", DisplayName: "user0001"}
	require.NoError(t, users.Insert(context.Background(), u))
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return NewTracker(users, 0, func() time.Time { return now }, 0), users, u
}

func TestLocksAtThreshold(t *testing.T) {
	tr, _, u := seed(t)
	tn := &repository.Tenant{}
	ctx := context.Background()
	var locked []string
	tr.OnLock = func(_, id string) { locked = append(locked, id) }

	for i := 1; i <= 4; i++ {
		n, err := tr.RecordFailure(ctx, tn, u, "10.0.0.1")
		require.NoError(t, err)
		require.Equal(t, i, n)
		require.False(t, tr.IsLocked(tn, u))
	}
	_, err := tr.RecordFailure(ctx, tn, u, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, tr.IsLocked(tn, u))
	require.Equal(t, []string{u.ID}, locked)
}

func TestTenantThresholdOverridesDefault(t *testing.T) {
	tr, _, u := seed(t)
	tn := &repository.Tenant{Settings: repository.Settings{AllowedLoginAttempts: 2}}
	ctx := context.Background()
	_, _ = tr.RecordFailure(ctx, tn, u, "")
	require.False(t, tr.IsLocked(tn, u))
	_, _ = tr.RecordFailure(ctx, tn, u, "")
	require.True(t, tr.IsLocked(tn, u))
}

func TestRecordSuccessAndReset(t *testing.T) {
	tr, users, u := seed(t)
	ctx := context.Background()
	tn := &repository.Tenant{}

	_, _ = tr.RecordFailure(ctx, tn, u, "1.1.1.1")
	require.NoError(t, tr.RecordSuccess(ctx, u, "2.2.2.2"))

	stored, err := users.GetByID(ctx, "t1", u.ID)
	require.NoError(t, err)
	require.Zero(t, stored.Security.FailedAttempts)
	require.Equal(t, "2.2.2.2", stored.Security.LastIP)
	require.False(t, stored.Security.LastSuccess.IsZero())

	for i := 0; i < 5; i++ {
		_, _ = tr.RecordFailure(ctx, tn, u, "")
	}
	require.NoError(t, tr.Reset(ctx, "t1", u.ID))
	stored, _ = users.GetByID(ctx, "t1", u.ID)
	require.False(t, tr.IsLocked(tn, stored))

	err = tr.Reset(ctx, "t1", "missing")
	require.True(t, autherr.Is(err, autherr.UserNotFound))
}

func TestConcurrentFailuresAreAllCounted(t *testing.T) {
	tr, users, u := seed(t)
	ctx := context.Background()
	tn := &repository.Tenant{Settings: repository.Settings{AllowedLoginAttempts: 1000}}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cp := u.Clone()
			_, err := tr.RecordFailure(ctx, tn, cp, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	stored, _ := users.GetByID(ctx, "t1", u.ID)
	require.Equal(t, 40, stored.Security.FailedAttempts)
}
