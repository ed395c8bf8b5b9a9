package tenant

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	"github.com/dropDatabas3/tenantauth/internal/store/adapters/memory"
)

// countingTenants cuenta queries al repo para verificar cache y fail-fast.
type countingTenants struct {
	repository.TenantRepository
	calls int32
}

func (c *countingTenants) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.TenantRepository.GetByID(ctx, id)
}

func (c *countingTenants) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.TenantRepository.GetBySlug(ctx, slug)
}

func newRegistry(t *testing.T) (*Registry, *countingTenants, *schema.Service) {
	t.Helper()
	conn := memory.New()
	tenants := &countingTenants{TenantRepository: conn.Tenants()}
	reg := NewRegistry(RegistryDeps{Tenants: tenants})
	svc := schema.NewService(schema.ServiceDeps{Repo: conn.Schemas(), Invalidator: reg})
	reg.SetSchemaSource(svc)
	return reg, tenants, svc
}

func TestResolvePriorityAndPaths(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()
	acme, err := reg.Create(ctx, CreateInput{Name: "Acme", Slug: "acme", Domains: []string{"Auth.Acme.io:443"}})
	require.NoError(t, err)
	globex, err := reg.Create(ctx, CreateInput{Name: "Globex", Slug: "globex"})
	require.NoError(t, err)

	tc, err := reg.Resolve(ctx, Identifier{ID: acme.ID})
	require.NoError(t, err)
	require.Equal(t, "acme", tc.Tenant.Slug)
	require.NotNil(t, tc.Schema)
	require.True(t, tc.Schema.AuthMethods.EmailPassword.Enabled)

	// id gana sobre slug
	tc, err = reg.Resolve(ctx, Identifier{ID: acme.ID, Slug: "globex"})
	require.NoError(t, err)
	require.Equal(t, acme.ID, tc.Tenant.ID)

	tc, err = reg.Resolve(ctx, Identifier{Slug: "GLOBEX"})
	require.NoError(t, err)
	require.Equal(t, globex.ID, tc.Tenant.ID)

	tc, err = reg.Resolve(ctx, Identifier{Host: "auth.acme.io:8080"})
	require.NoError(t, err)
	require.Equal(t, acme.ID, tc.Tenant.ID)
}

func TestResolveErrors(t *testing.T) {
	reg, repo, _ := newRegistry(t)
	ctx := context.Background()

	_, err := reg.Resolve(ctx, Identifier{})
	require.True(t, autherr.Is(err, autherr.TenantIdentifierMissing))

	_, err = reg.Resolve(ctx, Identifier{ID: "not-a-uuid"})
	require.True(t, autherr.Is(err, autherr.InvalidIdentifier))
	require.Zero(t, atomic.LoadInt32(&repo.calls), "malformed id must not hit the store")

	_, err = reg.Resolve(ctx, Identifier{Slug: "nope"})
	require.True(t, autherr.Is(err, autherr.TenantNotFound))

	_, err = reg.Resolve(ctx, Identifier{Host: "unknown.example.com"})
	require.True(t, autherr.Is(err, autherr.TenantNotFound))
}

func TestDeactivatedTenantIsNotResolved(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()
	tn, err := reg.Create(ctx, CreateInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)

	_, err = reg.Resolve(ctx, Identifier{Slug: "acme"})
	require.NoError(t, err)

	require.NoError(t, reg.Deactivate(ctx, tn.ID))
	_, err = reg.Resolve(ctx, Identifier{Slug: "acme"})
	require.True(t, autherr.Is(err, autherr.TenantNotFound))
}

func TestCacheAndInvalidateOnSchemaSave(t *testing.T) {
	reg, repo, svc := newRegistry(t)
	ctx := context.Background()
	tn, err := reg.Create(ctx, CreateInput{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Resolve(ctx, Identifier{Slug: "acme"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.LessOrEqual(t, atomic.LoadInt32(&repo.calls), int32(20))
	before := atomic.LoadInt32(&repo.calls)

	_, err = reg.Resolve(ctx, Identifier{Slug: "acme"})
	require.NoError(t, err)
	require.Equal(t, before, atomic.LoadInt32(&repo.calls), "second resolve served from cache")

	sc := schema.Default(tn.ID)
	sc.AuthMethods.MagicLink.Enabled = true
	require.NoError(t, svc.Save(ctx, sc))

	tc, err := reg.Resolve(ctx, Identifier{Slug: "acme"})
	require.NoError(t, err)
	require.True(t, tc.Schema.AuthMethods.MagicLink.Enabled)
}

func TestCreateValidation(t *testing.T) {
	reg, _, _ := newRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, CreateInput{Slug: "-bad-"})
	require.True(t, autherr.Is(err, autherr.ValidationFailed))
	require.ElementsMatch(t, []string{"name_required", "invalid_slug"}, autherr.ViolationsOf(err))

	tn, err := reg.Create(ctx, CreateInput{Name: "Acme", Slug: "acme", Features: repository.Features{Webhooks: true}})
	require.NoError(t, err)
	require.Len(t, tn.JWTSecret, 43)
	require.True(t, tn.Features.Registration && tn.Features.Login && tn.Features.PasswordReset)
	require.True(t, tn.Features.Webhooks)
	require.Equal(t, 5, tn.Settings.AllowedLoginAttempts)

	_, err = reg.Create(ctx, CreateInput{Name: "Acme 2", Slug: "acme"})
	require.True(t, autherr.Is(err, autherr.DuplicateIdentity))
}
