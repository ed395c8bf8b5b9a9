package rate

import (
	"context"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/guard"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// QuotaGuard aplica un Limiter por tenant+op+sujeto. Si el backend falla,
// deja pasar la operación (fail-open) y lo registra.
type QuotaGuard struct {
	Limiter Limiter
}

func NewQuotaGuard(l Limiter) *QuotaGuard { return &QuotaGuard{Limiter: l} }

var _ guard.Guard = (*QuotaGuard)(nil)

func (g *QuotaGuard) Check(ctx context.Context, req guard.Request) error {
	subject := strings.ToLower(strings.TrimSpace(req.Key))
	if subject == "" {
		subject = req.IP
	}
	if subject == "" {
		return nil
	}
	key := req.TenantID + ":" + req.Op + ":" + subject

	res, err := g.Limiter.Allow(ctx, key)
	if err != nil {
		logger.From(ctx).Warn("rate limiter unavailable, allowing request",
			logger.Layer("guard"), logger.Component("rate"), logger.Op(req.Op), logger.Err(err))
		return nil
	}
	if !res.Allowed {
		return autherr.New(autherr.QuotaExceeded, "too many attempts, try again later")
	}
	return nil
}
