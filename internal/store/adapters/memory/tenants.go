package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type tenantRepo struct{ c *Connection }

func cloneTenant(t *repository.Tenant) *repository.Tenant {
	cp := *t
	cp.Domains = append([]string(nil), t.Domains...)
	return &cp
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	t, ok := r.c.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTenant(t), nil
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	return r.find(ctx, func(t *repository.Tenant) bool { return t.Slug == slug })
}

func (r *tenantRepo) GetByDomain(ctx context.Context, domain string) (*repository.Tenant, error) {
	domain = strings.ToLower(domain)
	return r.find(ctx, func(t *repository.Tenant) bool {
		for _, d := range t.Domains {
			if strings.ToLower(d) == domain {
				return true
			}
		}
		return false
	})
}

func (r *tenantRepo) find(ctx context.Context, match func(*repository.Tenant) bool) (*repository.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, t := range r.c.tenants {
		if match(t) {
			return cloneTenant(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	for _, existing := range r.c.tenants {
		if existing.Slug == t.Slug {
			return repository.ErrConflict
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	r.c.tenants[t.ID] = cloneTenant(t)
	return nil
}

func (r *tenantRepo) Update(ctx context.Context, t *repository.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if _, ok := r.c.tenants[t.ID]; !ok {
		return repository.ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	r.c.tenants[t.ID] = cloneTenant(t)
	return nil
}

func (r *tenantRepo) List(ctx context.Context) ([]repository.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	out := make([]repository.Tenant, 0, len(r.c.tenants))
	for _, t := range r.c.tenants {
		out = append(out, *cloneTenant(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

type schemaRepo struct{ c *Connection }

// El schema se copia vía JSON para que el caller no comparta punteros internos.
func cloneSchema(s *repository.ValidationSchema) (*repository.ValidationSchema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out repository.ValidationSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *schemaRepo) Get(ctx context.Context, tenantID string) (*repository.ValidationSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	s, ok := r.c.schemas[tenantID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSchema(s)
}

func (r *schemaRepo) Upsert(ctx context.Context, s *repository.ValidationSchema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := cloneSchema(s)
	if err != nil {
		return err
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	cp.UpdatedAt = time.Now().UTC()
	s.UpdatedAt = cp.UpdatedAt
	r.c.schemas[s.TenantID] = cp
	return nil
}
