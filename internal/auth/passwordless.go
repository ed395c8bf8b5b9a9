package auth

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/notify"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// ─── Phone SMS ───

// RequestSMSCode genera un código numérico para el teléfono. Si no existe un
// usuario con ese teléfono se crea uno sin verificar.
func (e *Engine) RequestSMSCode(ctx context.Context, tc *tenant.Context, phone, ip string) (_ *Dispatch, err error) {
	const method = repository.MethodPhoneSMS
	defer func() {
		if err != nil {
			observe(method, err)
		}
	}()

	phone = identity.NormalizePhone(phone)
	if err := e.precheck(ctx, tc, method, "sms_request", phone, ip); err != nil {
		return nil, err
	}
	if !validPhone(phone) {
		return nil, autherr.Validation("invalid phone number", []string{"invalid_phone"})
	}
	log := e.log(ctx, tc, "RequestSMSCode", method)

	u, created, err := e.findOrCreate(ctx, tc.Tenant.ID, identity.Lookup{Phone: phone}, identity.NewIdentity{Phone: phone})
	if err != nil {
		return nil, err
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}

	code, ttl, err := e.newSMSCode(tc)
	if err != nil {
		return nil, err
	}
	expires := e.now().Add(ttl)

	octx, cancel := e.opCtx(ctx)
	err = e.d.Users.SetSMSCode(octx, tc.Tenant.ID, u.ID, tokens.SHA256Base64URL(code), expires)
	cancel()
	if err != nil {
		return nil, autherr.Store(err, "store sms code")
	}

	sent := e.send(ctx, tc, notify.Message{
		Channel:     notify.ChannelSMS,
		To:          phone,
		TemplateKey: notify.TemplateSMSCode,
		Params:      map[string]string{"Code": code, "TTL": ttl.String()},
	})
	log.Info("sms code issued", logger.UserID(u.ID), logger.Bool("created", created), logger.Bool("sent", sent))
	return &Dispatch{Sent: sent, ExpiresAt: expires, DebugToken: e.debug(code)}, nil
}

// newSMSCode genera un código con el largo y TTL del schema (o los defaults).
func (e *Engine) newSMSCode(tc *tenant.Context) (string, time.Duration, error) {
	cfg := tc.Schema.AuthMethods.PhoneSMS
	length := cfg.CodeLength
	if length <= 0 {
		length = e.d.Config.SMSCodeLength
	}
	ttl := cfg.CodeExpiry
	if ttl <= 0 {
		ttl = e.d.Config.SMSCodeTTL
	}
	code, err := e.d.Random.NumericCode(length)
	if err != nil {
		return "", 0, autherr.Wrap(err, autherr.Internal, "generate sms code")
	}
	return code, ttl, nil
}

// VerifySMSCode consume el código y marca el teléfono como verificado.
// Código vencido → CodeExpired; incorrecto o ya usado → UserNotFound.
func (e *Engine) VerifySMSCode(ctx context.Context, tc *tenant.Context, phone, code, ip string) (_ *Session, err error) {
	const method = repository.MethodPhoneSMS
	defer func() { observe(method, err) }()

	phone = identity.NormalizePhone(phone)
	if err := e.precheck(ctx, tc, method, "sms_verify", phone, ip); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if phone == "" || code == "" {
		return nil, autherr.Validation("phone and code are required", []string{"credentials_required"})
	}

	octx, cancel := e.opCtx(ctx)
	u, err := e.d.Users.ConsumeSMSCode(octx, tc.Tenant.ID, phone, tokens.SHA256Base64URL(code), e.now())
	cancel()
	if err != nil {
		return nil, consumeErr(err, autherr.CodeExpired, autherr.UserNotFound)
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}
	s, err := e.issue(ctx, tc, u, ip)
	if err != nil {
		return nil, err
	}
	e.log(ctx, tc, "VerifySMSCode", method).Info("sms login succeeded", logger.UserID(u.ID))
	return s, nil
}

// ─── Magic link ───

// MagicLinkInput: exactamente uno de Email o Phone.
type MagicLinkInput struct {
	Email string
	Phone string
	IP    string
}

// RequestMagicLink emite un token de un solo uso y lo envía por el canal del
// identificador. Crea el usuario si no existe.
func (e *Engine) RequestMagicLink(ctx context.Context, tc *tenant.Context, in MagicLinkInput) (_ *Dispatch, err error) {
	const method = repository.MethodMagicLink
	defer func() {
		if err != nil {
			observe(method, err)
		}
	}()

	email := identity.NormalizeEmail(in.Email)
	phone := identity.NormalizePhone(in.Phone)
	key := email
	if key == "" {
		key = phone
	}
	if err := e.precheck(ctx, tc, method, "magic_link_request", key, in.IP); err != nil {
		return nil, err
	}
	if (email == "") == (phone == "") {
		return nil, autherr.Validation("exactly one of email or phone is required", []string{"identifier_required"})
	}
	cfg := tc.Schema.AuthMethods.MagicLink
	var (
		lookup identity.Lookup
		nid    identity.NewIdentity
		msg    = notify.Message{TemplateKey: notify.TemplateMagicLink}
	)
	if email != "" {
		if !validEmail(email) {
			return nil, autherr.Validation("invalid email", []string{"invalid_email"})
		}
		if !domainAllowed(email, cfg.AllowedDomains) {
			return nil, autherr.Validation("email domain not allowed", []string{"domain_not_allowed"})
		}
		lookup, nid = identity.Lookup{Email: email}, identity.NewIdentity{Email: email}
		msg.Channel, msg.To = notify.ChannelEmail, email
	} else {
		if !validPhone(phone) {
			return nil, autherr.Validation("invalid phone number", []string{"invalid_phone"})
		}
		lookup, nid = identity.Lookup{Phone: phone}, identity.NewIdentity{Phone: phone}
		msg.Channel, msg.To = notify.ChannelSMS, phone
	}
	log := e.log(ctx, tc, "RequestMagicLink", method)

	u, created, err := e.findOrCreate(ctx, tc.Tenant.ID, lookup, nid)
	if err != nil {
		return nil, err
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}

	ttl := cfg.TokenExpiry
	if ttl <= 0 {
		ttl = e.d.Config.MagicLinkTTL
	}
	tok, err := e.d.Random.Opaque(32)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.Internal, "generate magic link token")
	}
	expires := e.now().Add(ttl)
	octx, cancel := e.opCtx(ctx)
	err = e.d.Users.SetMagicLink(octx, tc.Tenant.ID, u.ID, tokens.SHA256Base64URL(tok), expires)
	cancel()
	if err != nil {
		return nil, autherr.Store(err, "store magic link")
	}

	msg.Params = map[string]string{
		"Link": e.link(tc, "/v1/auth/magic-link/verify", tok),
		"TTL":  ttl.String(),
	}
	sent := e.send(ctx, tc, msg)
	log.Info("magic link issued", logger.UserID(u.ID), logger.Bool("created", created), logger.Bool("sent", sent))
	return &Dispatch{Sent: sent, ExpiresAt: expires, DebugToken: e.debug(tok)}, nil
}

// VerifyMagicLink consume el token. Dos verificaciones concurrentes del mismo
// token: una sola emite tokens.
func (e *Engine) VerifyMagicLink(ctx context.Context, tc *tenant.Context, token, ip string) (_ *Session, err error) {
	const method = repository.MethodMagicLink
	defer func() { observe(method, err) }()

	if err := e.precheck(ctx, tc, method, "magic_link_verify", "", ip); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, autherr.New(autherr.InvalidCredentials, "invalid or already used token")
	}
	octx, cancel := e.opCtx(ctx)
	u, err := e.d.Users.ConsumeMagicLink(octx, tc.Tenant.ID, tokens.SHA256Base64URL(token), e.now())
	cancel()
	if err != nil {
		return nil, consumeErr(err, autherr.TokenExpired, autherr.InvalidCredentials)
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}
	s, err := e.issue(ctx, tc, u, ip)
	if err != nil {
		return nil, err
	}
	e.log(ctx, tc, "VerifyMagicLink", method).Info("magic link login succeeded", logger.UserID(u.ID))
	return s, nil
}

// domainAllowed: lista vacía = cualquier dominio.
func domainAllowed(email string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	d := email[at+1:]
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(a), "@"), d) {
			return true
		}
	}
	return false
}
