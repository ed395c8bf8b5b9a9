package middlewares

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/http/errors"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// TokenValidator lo implementa *auth.Engine.
type TokenValidator interface {
	Validate(ctx context.Context, tc *tenant.Context, accessToken string) (*repository.User, *jwt.Claims, error)
}

// BearerToken extrae el token de "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[7:])
}

// RequireAuth valida el access token contra el tenant del contexto y guarda
// el usuario. Debe ir después de WithTenant.
func RequireAuth(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			ctx := r.Context()
			u, _, err := v.Validate(ctx, GetTenant(ctx), raw)
			if err != nil {
				errors.WriteError(w, errors.MaskUnknownUser(err))
				return
			}
			ctx = logger.ToContext(WithUser(ctx, u), logger.From(ctx).With(logger.UserID(u.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
