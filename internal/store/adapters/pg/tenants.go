package pg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

type tenantRepo struct{ pool *pgxpool.Pool }

const tenantColumns = `id, name, slug, domains, jwt_secret, features, settings, active, created_at, updated_at`

func scanTenant(row pgx.Row) (*repository.Tenant, error) {
	var t repository.Tenant
	var features, settings []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Domains, &t.JWTSecret, &features, &settings, &t.Active, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &t.Features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	return &t, nil
}

func (r *tenantRepo) getOne(ctx context.Context, op, where string, arg any) (*repository.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenant WHERE ` + where
	t, err := scanTenant(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapErr(op, err)
	}
	return t, nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.getOne(ctx, "get tenant by id", `id = $1`, id)
}

func (r *tenantRepo) GetBySlug(ctx context.Context, slug string) (*repository.Tenant, error) {
	return r.getOne(ctx, "get tenant by slug", `slug = $1`, slug)
}

func (r *tenantRepo) GetByDomain(ctx context.Context, domain string) (*repository.Tenant, error) {
	return r.getOne(ctx, "get tenant by domain", `$1 = ANY(domains) LIMIT 1`, strings.ToLower(domain))
}

func (r *tenantRepo) Create(ctx context.Context, t *repository.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	features, err := json.Marshal(t.Features)
	if err != nil {
		return fmt.Errorf("pg: encode features: %w", err)
	}
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("pg: encode settings: %w", err)
	}
	domains := lowerAll(t.Domains)

	const query = `
		INSERT INTO tenant (id, name, slug, domains, jwt_secret, features, settings, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	err = r.pool.QueryRow(ctx, query, t.ID, t.Name, t.Slug, domains, t.JWTSecret, features, settings, t.Active).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	return mapErr("create tenant", err)
}

func (r *tenantRepo) Update(ctx context.Context, t *repository.Tenant) error {
	features, err := json.Marshal(t.Features)
	if err != nil {
		return fmt.Errorf("pg: encode features: %w", err)
	}
	settings, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("pg: encode settings: %w", err)
	}

	const query = `
		UPDATE tenant
		SET name = $2, domains = $3, jwt_secret = $4, features = $5, settings = $6, active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err = r.pool.QueryRow(ctx, query, t.ID, t.Name, lowerAll(t.Domains), t.JWTSecret, features, settings, t.Active).
		Scan(&t.UpdatedAt)
	return mapErr("update tenant", err)
}

func (r *tenantRepo) List(ctx context.Context) ([]repository.Tenant, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tenantColumns+` FROM tenant ORDER BY slug`)
	if err != nil {
		return nil, mapErr("list tenants", err)
	}
	defer rows.Close()

	var out []repository.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, mapErr("scan tenant", err)
		}
		out = append(out, *t)
	}
	return out, mapErr("list tenants", rows.Err())
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}

type schemaRepo struct{ pool *pgxpool.Pool }

func (r *schemaRepo) Get(ctx context.Context, tenantID string) (*repository.ValidationSchema, error) {
	const query = `SELECT document, updated_at FROM validation_schema WHERE tenant_id = $1`
	var doc []byte
	var updated time.Time
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&doc, &updated); err != nil {
		return nil, mapErr("get schema", err)
	}
	var s repository.ValidationSchema
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("pg: decode schema: %w", err)
	}
	s.TenantID = tenantID
	s.UpdatedAt = updated
	return &s, nil
}

func (r *schemaRepo) Upsert(ctx context.Context, s *repository.ValidationSchema) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("pg: encode schema: %w", err)
	}
	const query = `
		INSERT INTO validation_schema (tenant_id, document, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET document = EXCLUDED.document, updated_at = NOW()
		RETURNING updated_at`
	return mapErr("upsert schema", r.pool.QueryRow(ctx, query, s.TenantID, doc).Scan(&s.UpdatedAt))
}
