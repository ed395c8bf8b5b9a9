// Package auth es el motor de autenticación: valida una credencial contra la
// identidad guardada del usuario, según el método, y la convierte en un par
// de tokens firmado con el secreto del tenant.
//
// Cada operación recibe un tenant ya resuelto (*tenant.Context) y devuelve un
// resultado o un *autherr.Error. El flujo es siempre el mismo:
// método habilitado → guards → resolver usuario → verificar → emitir tokens.
package auth

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/guard"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/lockout"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/notify"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
	"github.com/dropDatabas3/tenantauth/internal/social"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// Config parámetros del motor. Los TTL por método del schema tienen prioridad
// sobre estos defaults.
type Config struct {
	MagicLinkTTL  time.Duration
	SMSCodeLength int
	SMSCodeTTL    time.Duration
	VerifyTTL     time.Duration
	ResetTTL      time.Duration
	StateTTL      time.Duration
	OpTimeout     time.Duration
	// BaseURL arma los links de verificación, reset y magic link.
	BaseURL string
	// EchoTokens devuelve tokens/códigos en los resultados (solo dev/tests).
	EchoTokens bool
}

// Deps colaboradores inyectados.
type Deps struct {
	Identities *identity.Store
	Users      repository.UserRepository
	Tokens     *jwt.Service
	Lockout    *lockout.Tracker
	Notifier   notify.Notifier
	States     cache.Client
	Providers  social.Resolver
	Guard      guard.Guard
	Random     *tokens.Generator
	Blacklist  *password.Blacklist
	Now        func() time.Time
	Config     Config
}

type Engine struct {
	d Deps
}

func NewEngine(d Deps) *Engine {
	c := &d.Config
	if c.MagicLinkTTL == 0 {
		c.MagicLinkTTL = 24 * time.Hour
	}
	if c.SMSCodeLength == 0 {
		c.SMSCodeLength = 6
	}
	if c.SMSCodeTTL == 0 {
		c.SMSCodeTTL = 5 * time.Minute
	}
	if c.VerifyTTL == 0 {
		c.VerifyTTL = 24 * time.Hour
	}
	if c.ResetTTL == 0 {
		c.ResetTTL = time.Hour
	}
	if c.StateTTL == 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = 5 * time.Second
	}
	if d.Random == nil {
		d.Random = tokens.NewGenerator(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Guard == nil {
		d.Guard = guard.Chain(nil)
	}
	if d.Notifier == nil {
		d.Notifier = &notify.Recorder{}
	}
	return &Engine{d: d}
}

// ─── Resultados ───

// Session es el resultado de una autenticación exitosa.
type Session struct {
	User   *repository.User
	Tokens *jwt.Pair
}

// Dispatch es el resultado de un pedido de código/link. DebugToken solo se
// completa con EchoTokens.
type Dispatch struct {
	Sent       bool
	ExpiresAt  time.Time
	DebugToken string
}

// ─── Helpers ───

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
var phoneRE = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func validEmail(s string) bool { return len(s) <= 254 && emailRE.MatchString(s) }
func validPhone(s string) bool { return phoneRE.MatchString(s) }

func (e *Engine) now() time.Time { return e.d.Now().UTC() }

func (e *Engine) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.d.Config.OpTimeout)
}

func (e *Engine) log(ctx context.Context, tc *tenant.Context, op string, method repository.AuthMethod) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth"),
		logger.Op(op),
		logger.AuthMethod(string(method)),
		logger.TenantID(tc.Tenant.ID),
	)
}

// precheck: método habilitado y guards.
func (e *Engine) precheck(ctx context.Context, tc *tenant.Context, method repository.AuthMethod, op, key, ip string) error {
	if tc == nil || tc.Tenant == nil {
		return autherr.New(autherr.TenantNotFound, "tenant not resolved")
	}
	if !schema.IsMethodEnabled(tc.Schema, method) {
		return autherr.New(autherr.MethodNotEnabled, "authentication method not enabled")
	}
	return e.d.Guard.Check(ctx, guard.Request{
		TenantID: tc.Tenant.ID,
		Method:   string(method),
		Op:       op,
		Key:      key,
		IP:       ip,
	})
}

// observe registra el resultado del intento en métricas.
func observe(method repository.AuthMethod, err error) {
	result := ""
	if err != nil {
		result = autherr.KindOf(err).String()
	}
	metrics.RecordAttempt(string(method), result)
}

// consumeErr traduce el resultado de un Consume* del repositorio.
func consumeErr(err error, expired, missing autherr.Kind) error {
	switch {
	case repository.IsExpired(err):
		return autherr.Wrap(err, expired, "token expired")
	case repository.IsNotFound(err):
		return autherr.Wrap(err, missing, "invalid or already used token")
	}
	return autherr.Store(err, "consume token")
}

func statusErr(u *repository.User) error {
	switch u.Status {
	case repository.StatusActive:
		return nil
	case repository.StatusDeleted:
		return autherr.New(autherr.UserNotFound, "user not found")
	}
	return autherr.New(autherr.AccountInactive, "account is not active")
}

// issue emite tokens y registra el éxito del login.
func (e *Engine) issue(ctx context.Context, tc *tenant.Context, u *repository.User, ip string) (*Session, error) {
	if err := e.d.Lockout.RecordSuccess(ctx, u, ip); err != nil {
		return nil, err
	}
	pair, err := e.d.Tokens.Issue(u, tc.Tenant)
	if err != nil {
		return nil, err
	}
	metrics.RecordTokens("login")
	return &Session{User: u, Tokens: pair}, nil
}

// send entrega una notificación. Una falla se loguea pero no corta el flujo.
func (e *Engine) send(ctx context.Context, tc *tenant.Context, msg notify.Message) bool {
	msg.TenantID = tc.Tenant.ID
	if msg.FromEmail == "" {
		msg.FromEmail = tc.Tenant.Settings.FromEmail
		msg.FromName = tc.Tenant.Settings.FromName
	}
	ctx, cancel := e.opCtx(ctx)
	defer cancel()
	if err := e.d.Notifier.Notify(ctx, msg); err != nil {
		logger.From(ctx).Warn("notification failed",
			logger.Component("auth"), logger.TenantID(tc.Tenant.ID),
			logger.String("template", msg.TemplateKey), logger.Err(err))
		metrics.RecordNotificationFailure(string(msg.Channel))
		return false
	}
	return true
}

func (e *Engine) link(tc *tenant.Context, path, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("tenant", tc.Tenant.Slug)
	return strings.TrimRight(e.d.Config.BaseURL, "/") + path + "?" + q.Encode()
}

func (e *Engine) debug(v string) string {
	if e.d.Config.EchoTokens {
		return v
	}
	return ""
}

// findOrCreate busca por email/phone y crea el usuario si no existe. Una
// carrera con otro alta (DuplicateIdentity) se resuelve releyendo.
func (e *Engine) findOrCreate(ctx context.Context, tenantID string, lookup identity.Lookup, in identity.NewIdentity) (*repository.User, bool, error) {
	u, err := e.d.Identities.FindByIdentifier(ctx, tenantID, lookup)
	if err == nil {
		return u, false, nil
	}
	if !autherr.Is(err, autherr.UserNotFound) {
		return nil, false, err
	}
	u, err = e.d.Identities.Create(ctx, tenantID, in)
	if autherr.Is(err, autherr.DuplicateIdentity) {
		u, err = e.d.Identities.FindByIdentifier(ctx, tenantID, lookup)
		if autherr.Is(err, autherr.UserNotFound) {
			// el identificador pertenece a un usuario borrado
			return nil, false, autherr.New(autherr.AccountInactive, "account is not active")
		}
		return u, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}
