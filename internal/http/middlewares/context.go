package middlewares

import (
	"context"
	"net"
	"net/http"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	tenantKey
	userKey
	clientIPKey
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey, rid)
}

// GetRequestID retorna el request id del contexto ("" si no hay).
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}

// WithTenantContext guarda el tenant resuelto.
func WithTenantContext(ctx context.Context, tc *tenant.Context) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// GetTenant retorna el tenant resuelto o nil.
func GetTenant(ctx context.Context) *tenant.Context {
	tc, _ := ctx.Value(tenantKey).(*tenant.Context)
	return tc
}

// WithUser guarda el usuario autenticado por bearer token.
func WithUser(ctx context.Context, u *repository.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// GetUser retorna el usuario autenticado o nil.
func GetUser(ctx context.Context) *repository.User {
	u, _ := ctx.Value(userKey).(*repository.User)
	return u
}

// ClientIP retorna la IP resuelta por WithClientIP; sin ese middleware, el
// host de RemoteAddr.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
