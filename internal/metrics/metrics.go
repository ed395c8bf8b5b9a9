// Package metrics define las métricas Prometheus del motor de auth. Viven en
// un paquete propio para que auth, jwt y http las usen sin ciclos.
package metrics

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Intentos de autenticación por método y resultado",
	}, []string{"method", "result"}) // result: success | kind del error

	AuthLockouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_lockouts_total",
		Help: "Cuentas bloqueadas por intentos fallidos",
	})

	TokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokens_issued_total",
		Help: "Pares de tokens emitidos por origen",
	}, []string{"kind"}) // login | refresh

	NotificationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Entregas de email/SMS fallidas",
	}, []string{"channel"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})
)

// RecordAttempt suma un intento. result vacío = success.
func RecordAttempt(method, result string) {
	if result == "" {
		result = "success"
	}
	AuthAttempts.WithLabelValues(method, result).Inc()
}

func RecordLockout() { AuthLockouts.Inc() }

func RecordTokens(kind string) { TokensIssued.WithLabelValues(kind).Inc() }

func RecordNotificationFailure(channel string) {
	NotificationFailures.WithLabelValues(channel).Inc()
}

// Register registra las métricas en reg (o el default si es nil). Registrar
// dos veces no es error.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		AuthAttempts, AuthLockouts, TokensIssued, NotificationFailures,
		HTTPRequestsTotal, HTTPRequestDuration, HTTPInflight,
	} {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// RegisterPool expone las estadísticas del pool de Postgres.
func RegisterPool(reg prometheus.Registerer, pool func() *pgxpool.Pool) error {
	return registerCollector(reg, newPoolCollector(pool))
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// poolCollector expone gauges del pool global.
type poolCollector struct {
	pool func() *pgxpool.Pool

	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool func() *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	if c.pool == nil {
		return
	}
	p := c.pool()
	if p == nil {
		return
	}
	stat := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
