// Package health expone /healthz (liveness) y /readyz (dependencias).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/health"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Check verifica un componente (store, cache).
type Check func(ctx context.Context) error

type Controller struct {
	checks  map[string]Check
	version string
	timeout time.Duration
}

func New(version string, checks map[string]Check) *Controller {
	return &Controller{checks: checks, version: version, timeout: 2 * time.Second}
}

// Live maneja GET /healthz.
func (c *Controller) Live(w http.ResponseWriter, _ *http.Request) {
	write(w, http.StatusOK, dto.HealthResponse{Status: "ready", Version: c.version, Timestamp: time.Now().UTC()})
}

// Ready maneja GET /readyz. Cualquier componente caído → 503.
func (c *Controller) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	sort.Strings(names)

	resp := dto.HealthResponse{
		Status:     "ready",
		Components: make(map[string]dto.HealthStatus, len(names)),
		Version:    c.version,
		Timestamp:  time.Now().UTC(),
	}
	status := http.StatusOK
	for _, n := range names {
		if err := c.checks[n](ctx); err != nil {
			logger.From(ctx).Warn("readiness check failed", logger.Component(n), logger.Err(err))
			resp.Components[n] = dto.HealthStatus{Status: "error", Message: "unavailable"}
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[n] = dto.HealthStatus{Status: "ok"}
	}
	write(w, status, resp)
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
