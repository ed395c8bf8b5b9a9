package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/http/errors"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// TenantResolver lo implementa *tenant.Registry.
type TenantResolver interface {
	Resolve(ctx context.Context, id tenant.Identifier) (*tenant.Context, error)
}

// Headers de resolución de tenant.
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderTenantSlug = "X-Tenant-Slug"
)

// IdentifierFrom arma el identificador desde headers, el query param
// "tenant" (links de email y callbacks OAuth) y el Host.
func IdentifierFrom(r *http.Request) tenant.Identifier {
	id := tenant.Identifier{
		ID:   strings.TrimSpace(r.Header.Get(HeaderTenantID)),
		Slug: strings.TrimSpace(r.Header.Get(HeaderTenantSlug)),
	}
	if id.Slug == "" {
		id.Slug = strings.TrimSpace(r.URL.Query().Get("tenant"))
	}
	if id.ID == "" && id.Slug == "" {
		id.Host = r.Host
	}
	return id
}

// WithTenant resuelve el tenant del request y lo deja en el contexto. Un
// tenant no resuelto corta el request con el error mapeado.
func WithTenant(resolver TenantResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			tc, err := resolver.Resolve(ctx, IdentifierFrom(r))
			if err != nil {
				logger.From(ctx).Debug("tenant resolution failed", logger.Layer("http"), logger.Err(err))
				errors.WriteError(w, err)
				return
			}
			l := logger.From(ctx).With(logger.TenantID(tc.Tenant.ID), logger.TenantSlug(tc.Tenant.Slug))
			ctx = logger.ToContext(WithTenantContext(ctx, tc), l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
