package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

type users map[string]*repository.User

func (u users) GetByID(_ context.Context, tenantID, id string) (*repository.User, error) {
	if x, ok := u[id]; ok && x.TenantID == tenantID {
		return x, nil
	}
	return nil, repository.ErrNotFound
}

func setup() (*Service, *fakeClock, *repository.Tenant, *repository.User, users) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	tn := &repository.Tenant{ID: "t1", JWTSecret: "tenant-one-secret"}
	u := &repository.User{ID: "u1", TenantID: "t1", Status: repository.StatusActive}
	us := users{"u1": u}
	svc := NewService(Config{Now: clock.Now}, us)
	return svc, clock, tn, u, us
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, _, tn, u, _ := setup()
	pair, err := svc.Issue(u, tn)
	require.NoError(t, err)

	c, err := svc.Verify(pair.AccessToken, tn.JWTSecret)
	require.NoError(t, err)
	require.Equal(t, "u1", c.UserID)
	require.Equal(t, KindAccess, c.Type)
	require.Equal(t, "t1", c.TenantID)
	require.Equal(t, time.Hour, c.ExpiresAt.Sub(c.IssuedAt.Time))

	rc, err := svc.Verify(pair.RefreshToken, tn.JWTSecret)
	require.NoError(t, err)
	require.Equal(t, KindRefresh, rc.Type)
	require.Equal(t, 7*24*time.Hour, rc.ExpiresAt.Sub(rc.IssuedAt.Time))
}

func TestVerifyExpired(t *testing.T) {
	svc, clock, tn, u, _ := setup()
	pair, err := svc.Issue(u, tn)
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Hour + time.Second)
	_, err = svc.Verify(pair.AccessToken, tn.JWTSecret)
	require.True(t, autherr.Is(err, autherr.TokenExpired), "got %v", err)

	// el refresh sigue vigente
	_, err = svc.Verify(pair.RefreshToken, tn.JWTSecret)
	require.NoError(t, err)
}

func TestVerifyRejectsOtherTenantSecret(t *testing.T) {
	svc, _, tn, u, _ := setup()
	pair, _ := svc.Issue(u, tn)
	_, err := svc.Verify(pair.AccessToken, "another-tenant-secret")
	require.True(t, autherr.Is(err, autherr.InvalidCredentials))

	other := &repository.Tenant{ID: "t2", JWTSecret: tn.JWTSecret}
	_, err = svc.VerifyFor(pair.AccessToken, other, KindAccess)
	require.True(t, autherr.Is(err, autherr.InvalidCredentials))
}

func TestRefresh(t *testing.T) {
	svc, clock, tn, u, us := setup()
	pair, _ := svc.Issue(u, tn)

	// access no sirve como refresh
	_, err := svc.Refresh(context.Background(), pair.AccessToken, tn)
	require.True(t, autherr.Is(err, autherr.InvalidCredentials))

	clock.t = clock.t.Add(2 * time.Hour)
	next, err := svc.Refresh(context.Background(), pair.RefreshToken, tn)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, next.AccessToken)

	us["u1"].Status = repository.StatusSuspended
	_, err = svc.Refresh(context.Background(), pair.RefreshToken, tn)
	require.True(t, autherr.Is(err, autherr.AccountInactive))

	us["u1"].Status = repository.StatusDeleted
	_, err = svc.Refresh(context.Background(), pair.RefreshToken, tn)
	require.True(t, autherr.Is(err, autherr.UserNotFound))
}

func TestRevokeNeverFails(t *testing.T) {
	svc, _, tn, u, _ := setup()
	pair, _ := svc.Issue(u, tn)
	svc.Revoke(context.Background(), pair.AccessToken, tn)
	svc.Revoke(context.Background(), "garbage", tn)
	svc.Revoke(context.Background(), "", nil)
}

func TestIssueWithoutSecretFails(t *testing.T) {
	svc, _, _, u, _ := setup()
	_, err := svc.Issue(u, &repository.Tenant{ID: "t9"})
	require.Error(t, err)
}

// slowUsers bloquea hasta que vence el contexto.
type slowUsers struct{ sawDeadline bool }

func (s *slowUsers) GetByID(ctx context.Context, _, _ string) (*repository.User, error) {
	_, s.sawDeadline = ctx.Deadline()
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRefreshBoundsUserLookup(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	tn := &repository.Tenant{ID: "t1", JWTSecret: "tenant-one-secret"}
	slow := &slowUsers{}
	svc := NewService(Config{Now: clock.Now, OpTimeout: 20 * time.Millisecond}, slow)

	pair, err := svc.Issue(&repository.User{ID: "u1", TenantID: "t1"}, tn)
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.Type)

	start := time.Now()
	_, err = svc.Refresh(context.Background(), pair.RefreshToken, tn)
	require.Error(t, err)
	require.True(t, slow.sawDeadline)
	require.Less(t, time.Since(start), 2*time.Second)
	require.True(t, autherr.Is(err, autherr.TransientStoreFailure), "got %v", err)
}
