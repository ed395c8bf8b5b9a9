// Package tenant resuelve el tenant de cada request (id, slug o host) y le
// adjunta su schema de validación vigente.
package tenant

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
)

// Identifier es lo que trae el request. Se usa uno solo, en orden
// ID > Slug > Host.
type Identifier struct {
	ID   string
	Slug string
	Host string
}

// Context es el tenant resuelto junto con su schema.
type Context struct {
	Tenant *repository.Tenant
	Schema *repository.ValidationSchema
}

// SchemaSource lo implementa schema.Service (devuelve el default si no hay uno guardado).
type SchemaSource interface {
	Get(ctx context.Context, tenantID string) (*repository.ValidationSchema, error)
}

// RegistryDeps dependencias del registry.
type RegistryDeps struct {
	Tenants repository.TenantRepository
	Schemas SchemaSource
	// TTL del cache de resolución. 0 = 30s; negativo desactiva el cache.
	TTL       time.Duration
	OpTimeout time.Duration
}

// Registry resuelve tenants con cache de lectura y coalescing de misses.
type Registry struct {
	deps  RegistryDeps
	cache *gocache.Cache
	sf    singleflight.Group
}

func NewRegistry(d RegistryDeps) *Registry {
	if d.TTL == 0 {
		d.TTL = 30 * time.Second
	}
	if d.OpTimeout == 0 {
		d.OpTimeout = 5 * time.Second
	}
	r := &Registry{deps: d}
	if d.TTL > 0 {
		r.cache = gocache.New(d.TTL, 2*d.TTL)
	}
	return r
}

// SetSchemaSource cierra el ciclo registry <-> schema.Service (el servicio
// invalida el cache del registry al guardar).
func (r *Registry) SetSchemaSource(s SchemaSource) { r.deps.Schemas = s }

// NormalizeHost quita el puerto y pasa a minúsculas.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}

// Resolve intenta exactamente un camino de resolución.
func (r *Registry) Resolve(ctx context.Context, id Identifier) (*Context, error) {
	var (
		key    string
		lookup func(context.Context) (*repository.Tenant, error)
	)
	switch {
	case strings.TrimSpace(id.ID) != "":
		raw := strings.TrimSpace(id.ID)
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, autherr.New(autherr.InvalidIdentifier, "malformed tenant id")
		}
		key = "id:" + parsed.String()
		lookup = func(c context.Context) (*repository.Tenant, error) { return r.deps.Tenants.GetByID(c, parsed.String()) }
	case strings.TrimSpace(id.Slug) != "":
		slug := strings.ToLower(strings.TrimSpace(id.Slug))
		key = "slug:" + slug
		lookup = func(c context.Context) (*repository.Tenant, error) { return r.deps.Tenants.GetBySlug(c, slug) }
	case NormalizeHost(id.Host) != "":
		host := NormalizeHost(id.Host)
		key = "host:" + host
		lookup = func(c context.Context) (*repository.Tenant, error) { return r.deps.Tenants.GetByDomain(c, host) }
	default:
		return nil, autherr.New(autherr.TenantIdentifierMissing, "tenant identifier missing")
	}

	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			return v.(*Context), nil
		}
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		return r.load(ctx, lookup)
	})
	if err != nil {
		return nil, err
	}
	tc := v.(*Context)
	if r.cache != nil {
		r.cache.SetDefault(key, tc)
	}
	return tc, nil
}

func (r *Registry) load(ctx context.Context, lookup func(context.Context) (*repository.Tenant, error)) (*Context, error) {
	ctx, cancel := context.WithTimeout(ctx, r.deps.OpTimeout)
	defer cancel()

	t, err := lookup(ctx)
	if repository.IsNotFound(err) {
		return nil, autherr.New(autherr.TenantNotFound, "tenant not found")
	}
	if err != nil {
		return nil, autherr.Store(err, "resolve tenant")
	}
	if !t.Active {
		return nil, autherr.New(autherr.TenantNotFound, "tenant not found")
	}
	sc, err := r.deps.Schemas.Get(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &Context{Tenant: t, Schema: sc}, nil
}

// Invalidate descarta el cache. Las keys son id/slug/host así que se
// limpia completo; la recarga es barata.
func (r *Registry) Invalidate(tenantID string) {
	if r.cache != nil {
		r.cache.Flush()
	}
}

// ─── Operaciones de sistema ───

// CreateInput datos para crear un tenant.
type CreateInput struct {
	Name     string
	Slug     string
	Domains  []string
	Features repository.Features
	Settings *repository.Settings
}

// Create genera un secreto de firma de 32 bytes y fuerza los flags core.
func (r *Registry) Create(ctx context.Context, in CreateInput) (*repository.Tenant, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("tenant"), logger.Op("Create"))

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	var violations []string
	if strings.TrimSpace(in.Name) == "" {
		violations = append(violations, "name_required")
	}
	if !validSlug(slug) {
		violations = append(violations, "invalid_slug")
	}
	if len(violations) > 0 {
		return nil, autherr.Validation("invalid tenant", violations)
	}

	secret, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.Internal, "generate signing secret")
	}
	settings := repository.DefaultSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}
	domains := make([]string, 0, len(in.Domains))
	for _, d := range in.Domains {
		if h := NormalizeHost(d); h != "" {
			domains = append(domains, h)
		}
	}
	t := &repository.Tenant{
		Name:      strings.TrimSpace(in.Name),
		Slug:      slug,
		Domains:   domains,
		JWTSecret: secret,
		Features:  in.Features.Normalize(),
		Settings:  settings,
		Active:    true,
	}

	ctx, cancel := context.WithTimeout(ctx, r.deps.OpTimeout)
	defer cancel()
	if err := r.deps.Tenants.Create(ctx, t); err != nil {
		if repository.IsConflict(err) {
			return nil, autherr.New(autherr.DuplicateIdentity, "tenant slug already exists")
		}
		return nil, autherr.Store(err, "create tenant")
	}
	log.Info("tenant created", logger.TenantID(t.ID), logger.TenantSlug(t.Slug))
	audit.Log(ctx, audit.TenantCreated, t.ID, "", logger.TenantSlug(t.Slug))
	return t, nil
}

// Deactivate marca active=false; los tenants nunca se borran.
func (r *Registry) Deactivate(ctx context.Context, tenantID string) error {
	if _, err := uuid.Parse(tenantID); err != nil {
		return autherr.New(autherr.InvalidIdentifier, "malformed tenant id")
	}
	ctx, cancel := context.WithTimeout(ctx, r.deps.OpTimeout)
	defer cancel()

	t, err := r.deps.Tenants.GetByID(ctx, tenantID)
	if repository.IsNotFound(err) {
		return autherr.New(autherr.TenantNotFound, "tenant not found")
	}
	if err != nil {
		return autherr.Store(err, "load tenant")
	}
	t.Active = false
	t.Features = t.Features.Normalize()
	if err := r.deps.Tenants.Update(ctx, t); err != nil {
		return autherr.Store(err, "deactivate tenant")
	}
	r.Invalidate(tenantID)
	audit.Log(ctx, audit.TenantDeactivated, tenantID, "")
	return nil
}

func validSlug(s string) bool {
	if len(s) < 2 || len(s) > 63 {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' && i > 0 && i < len(s)-1:
		default:
			return false
		}
	}
	return true
}
