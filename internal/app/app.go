// Package app arma el servicio completo a partir de la config: store, cache,
// tenants, motor de auth y router HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/tenantauth/internal/auth"
	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/config"
	"github.com/dropDatabas3/tenantauth/internal/guard"
	"github.com/dropDatabas3/tenantauth/internal/http/controllers/health"
	"github.com/dropDatabas3/tenantauth/internal/http/router"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/lockout"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/notify"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/rate"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
	"github.com/dropDatabas3/tenantauth/internal/social"
	"github.com/dropDatabas3/tenantauth/internal/store"
	_ "github.com/dropDatabas3/tenantauth/internal/store/adapters/dal"
	"github.com/dropDatabas3/tenantauth/internal/store/adapters/pg"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// App es el servicio cableado.
type App struct {
	Handler  http.Handler
	Conn     store.Connection
	Tenants  *tenant.Registry
	Schemas  *schema.Service
	Identity *identity.Store
	Engine   *auth.Engine

	closers []func() error
}

// Options ajustes que no vienen de la config.
type Options struct {
	Version string
	// Registerer de métricas. nil = prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// SkipHTTP no arma router/métricas (CLI de administración).
	SkipHTTP bool
}

// New conecta los backends y arma el motor. Ante error cierra lo abierto.
func New(ctx context.Context, cfg *config.Config, opts Options) (a *App, err error) {
	log := logger.From(ctx).With(logger.Layer("app"))
	// los return de error ponen a=nil; el cleanup usa built.
	built := &App{}
	a = built
	defer func() {
		if err != nil {
			_ = built.Close()
			a = nil
		}
	}()

	// ─── Store ───
	conn, err := store.Open(ctx, store.AdapterConfig{
		Name:            cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.MaxConns,
		MinConns:        cfg.Storage.MinConns,
		ConnectAttempts: cfg.Storage.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Conn = conn
	a.closers = append(a.closers, conn.Close)

	if cfg.Storage.AutoMigrate {
		if m, ok := conn.(store.Migratable); ok {
			res, err := m.Migrate(ctx)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied", logger.Int("applied", len(res.Applied)), logger.Int("skipped", len(res.Skipped)))
		}
	}

	// ─── Cache + rate ───
	var (
		states  cache.Client
		limiter rate.Limiter
	)
	switch cfg.Cache.Kind {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		perr := rdb.Ping(pctx).Err()
		cancel()
		if perr != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", perr)
		}
		a.closers = append(a.closers, rdb.Close)
		states = cache.NewRedisFromClient(rdb, cfg.Cache.Redis.Prefix)
		limiter = rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.Limit, cfg.Rate.Window)
	default:
		states = cache.NewMemory(cfg.Cache.Redis.Prefix)
		limiter = rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window)
	}

	// ─── Tenants + schemas ───
	var box *secretbox.Box
	if cfg.Security.SecretKey != "" {
		if box, err = secretbox.New(cfg.Security.SecretKey); err != nil {
			return nil, fmt.Errorf("secret key: %w", err)
		}
	}
	a.Tenants = tenant.NewRegistry(tenant.RegistryDeps{
		Tenants:   conn.Tenants(),
		TTL:       cfg.Cache.TenantTTL,
		OpTimeout: cfg.Security.OpTimeout,
	})
	a.Schemas = schema.NewService(schema.ServiceDeps{
		Repo:        conn.Schemas(),
		Invalidator: a.Tenants,
		Box:         box,
		OpTimeout:   cfg.Security.OpTimeout,
	})
	a.Tenants.SetSchemaSource(a.Schemas)

	// ─── Identidad + tokens ───
	hasher, err := password.NewHasher(cfg.Security.PasswordHasher, cfg.Security.BcryptCost)
	if err != nil {
		return nil, err
	}
	blacklist, err := password.LoadBlacklist(cfg.Security.PasswordBlacklistPath)
	if err != nil {
		return nil, fmt.Errorf("password blacklist: %w", err)
	}
	users := conn.Users()
	a.Identity = identity.NewStore(identity.StoreDeps{
		Users:             users,
		Hasher:            hasher,
		DisplayNamePrefix: cfg.Auth.DisplayNamePrefix,
		OpTimeout:         cfg.Security.OpTimeout,
	})
	tracker := lockout.NewTracker(users, cfg.Security.LockoutThreshold, time.Now, cfg.Security.OpTimeout)

	// ─── Notificaciones ───
	var email notify.EmailSender
	if cfg.SMTP.Host != "" {
		s := notify.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.FromEmail, cfg.SMTP.Username, cfg.SMTP.Password)
		s.TLSMode = cfg.SMTP.TLS
		s.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		email = s
	} else {
		log.Warn("smtp not configured, emails will fail softly")
	}
	var sms notify.SMSSender
	if cfg.SMS.Driver == "log" {
		sms = notify.LogSMSSender{DebugBody: cfg.App.Env == "dev"}
	}

	var g guard.Guard
	if cfg.Rate.Enabled {
		g = rate.NewQuotaGuard(limiter)
	}

	tokenSvc := jwt.NewService(jwt.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		OpTimeout:  cfg.Security.OpTimeout,
	}, users)
	a.Engine = auth.NewEngine(auth.Deps{
		Identities: a.Identity,
		Users:      users,
		Tokens:     tokenSvc,
		Lockout:    tracker,
		Notifier:   notify.NewRouter(nil, email, sms),
		States:     states,
		Providers:  social.NewRegistry(box, cfg.Providers.RedirectBaseURL, cfg.Providers.HTTPTimeout),
		Guard:      g,
		Blacklist:  blacklist,
		Config: auth.Config{
			MagicLinkTTL:  cfg.Auth.MagicLinkTTL,
			SMSCodeLength: cfg.Auth.SMSCodeLength,
			SMSCodeTTL:    cfg.Auth.SMSCodeTTL,
			VerifyTTL:     cfg.Auth.VerifyTTL,
			ResetTTL:      cfg.Auth.ResetTTL,
			StateTTL:      cfg.Auth.StateTTL,
			OpTimeout:     cfg.Security.OpTimeout,
			BaseURL:       cfg.App.BaseURL,
			EchoTokens:    cfg.Auth.DebugEchoTokens,
		},
	})

	if opts.SkipHTTP {
		return a, nil
	}

	// ─── HTTP ───
	reg, gat := opts.Registerer, opts.Gatherer
	if reg == nil {
		reg, gat = prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if pc, ok := conn.(*pg.Connection); ok {
		if err := metrics.RegisterPool(reg, pc.Pool); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	checks := map[string]health.Check{
		"store": conn.Ping,
		"cache": states.Ping,
	}
	a.Handler = router.New(router.Deps{
		Engine:  a.Engine,
		Tenants: a.Tenants,
		Health:  health.New(opts.Version, checks),
		Metrics: promhttp.HandlerFor(gat, promhttp.HandlerOpts{}),
		Now:     time.Now,

		TrustProxy: cfg.Server.TrustProxyHeaders,
	})
	return a, nil
}

// Close cierra backends en orden inverso de apertura.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
