package auth

import (
	"context"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/notify"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// Login email + password.
//
// UserNotFound e InvalidCredentials se distinguen acá (lockout y métricas);
// la capa HTTP los presenta igual.
func (e *Engine) Login(ctx context.Context, tc *tenant.Context, in LoginInput) (_ *Session, err error) {
	const method = repository.MethodEmailPassword
	defer func() { observe(method, err) }()

	email := identity.NormalizeEmail(in.Email)
	if err := e.precheck(ctx, tc, method, "login", email, in.IP); err != nil {
		return nil, err
	}
	log := e.log(ctx, tc, "Login", method)
	if email == "" || in.Password == "" {
		return nil, autherr.Validation("email and password are required", []string{"credentials_required"})
	}

	u, err := e.d.Identities.FindByIdentifier(ctx, tc.Tenant.ID, identity.Lookup{Email: email})
	if err != nil {
		if autherr.Is(err, autherr.UserNotFound) {
			log.Debug("login for unknown email", logger.Email(email))
		}
		return nil, err
	}
	log = log.With(logger.UserID(u.ID))

	if u.Status != repository.StatusActive || e.d.Lockout.IsLocked(tc.Tenant, u) {
		log.Info("login rejected: account locked", logger.Int("failed_attempts", u.Security.FailedAttempts))
		return nil, autherr.New(autherr.AccountLocked, "account is locked")
	}

	ok := false
	if u.PasswordHash != "" {
		vctx, cancel := e.opCtx(ctx)
		ok, err = password.VerifyContext(vctx, u.PasswordHash, in.Password)
		cancel()
		if err != nil {
			return nil, autherr.Wrap(err, autherr.TransientStoreFailure, "password verification timed out")
		}
	}
	if !ok {
		n, ferr := e.d.Lockout.RecordFailure(ctx, tc.Tenant, u, in.IP)
		if ferr != nil {
			return nil, ferr
		}
		if n == e.d.Lockout.Threshold(tc.Tenant) {
			metrics.RecordLockout()
			audit.Log(ctx, audit.UserLocked, tc.Tenant.ID, u.ID, logger.String("ip", in.IP))
			e.send(ctx, tc, notify.Message{
				Channel:     notify.ChannelEmail,
				To:          u.Email,
				TemplateKey: notify.TemplateUserLocked,
				Params:      map[string]string{"Email": u.Email},
			})
		}
		log.Info("login failed", logger.Int("failed_attempts", n))
		return nil, autherr.New(autherr.InvalidCredentials, "invalid credentials")
	}

	s, err := e.issue(ctx, tc, u, in.IP)
	if err != nil {
		return nil, err
	}
	log.Info("login succeeded")
	return s, nil
}

type RegisterInput struct {
	Email       string
	Password    string
	Phone       string
	DisplayName string
	Profile     map[string]any
	IP          string
}

type RegisterResult struct {
	Session
	VerificationRequired bool
	DebugToken           string
}

// Register crea un usuario email + password. Todas las violaciones (password,
// email y campos custom) se devuelven juntas.
func (e *Engine) Register(ctx context.Context, tc *tenant.Context, in RegisterInput) (_ *RegisterResult, err error) {
	const method = repository.MethodEmailPassword
	defer func() { observe(method, err) }()

	email := identity.NormalizeEmail(in.Email)
	if err := e.precheck(ctx, tc, method, "register", email, in.IP); err != nil {
		return nil, err
	}
	if !tc.Tenant.Features.Registration {
		return nil, autherr.New(autherr.MethodNotEnabled, "registration disabled")
	}
	log := e.log(ctx, tc, "Register", method)
	epm := tc.Schema.AuthMethods.EmailPassword

	var violations []string
	if !validEmail(email) {
		violations = append(violations, "invalid_email")
	}
	violations = append(violations, schema.CheckPasswordStrength(in.Password, epm.PasswordPolicy)...)
	if e.d.Blacklist.Contains(in.Password) {
		violations = append(violations, password.ViolationCommon)
	}
	phone := identity.NormalizePhone(in.Phone)
	if in.Phone != "" && !validPhone(phone) {
		violations = append(violations, "invalid_phone")
	}
	violations = append(violations, schema.Strings(schema.ValidateFields(in.Profile, tc.Schema.CustomFields))...)
	if len(violations) > 0 {
		log.Debug("registration rejected", logger.Int("violations", len(violations)))
		return nil, autherr.Validation("validation failed", violations)
	}

	u, err := e.d.Identities.Create(ctx, tc.Tenant.ID, identity.NewIdentity{
		Email:         email,
		Phone:         phone,
		Password:      in.Password,
		DisplayName:   in.DisplayName,
		Profile:       schema.FilterProfile(in.Profile, tc.Schema.CustomFields),
		EmailVerified: !epm.EmailVerification.Required,
	})
	if err != nil {
		return nil, err
	}
	log = log.With(logger.UserID(u.ID))

	res := &RegisterResult{VerificationRequired: epm.EmailVerification.Required}
	if res.VerificationRequired {
		tok, err := e.sendVerification(ctx, tc, u, epm.EmailVerification.TokenExpiry)
		if err != nil {
			return nil, err
		}
		res.DebugToken = e.debug(tok)
	}

	s, err := e.issue(ctx, tc, u, in.IP)
	if err != nil {
		return nil, err
	}
	res.Session = *s
	log.Info("user registered", logger.Bool("verification_required", res.VerificationRequired))
	return res, nil
}

func (e *Engine) sendVerification(ctx context.Context, tc *tenant.Context, u *repository.User, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = e.d.Config.VerifyTTL
	}
	tok, err := e.d.Random.Opaque(32)
	if err != nil {
		return "", autherr.Wrap(err, autherr.Internal, "generate verification token")
	}
	octx, cancel := e.opCtx(ctx)
	err = e.d.Users.SetVerificationToken(octx, tc.Tenant.ID, u.ID, tokens.SHA256Base64URL(tok), e.now().Add(ttl))
	cancel()
	if err != nil {
		return "", autherr.Store(err, "store verification token")
	}
	e.send(ctx, tc, notify.Message{
		Channel:     notify.ChannelEmail,
		To:          u.Email,
		TemplateKey: notify.TemplateVerifyEmail,
		Params: map[string]string{
			"Email": u.Email,
			"Link":  e.link(tc, "/v1/auth/verify-email", tok),
			"TTL":   ttl.String(),
		},
	})
	return tok, nil
}

// VerifyEmail consume el token de verificación (un solo uso).
func (e *Engine) VerifyEmail(ctx context.Context, tc *tenant.Context, token string) (*repository.User, error) {
	const method = repository.MethodEmailPassword
	if err := e.precheck(ctx, tc, method, "verify_email", "", ""); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, autherr.New(autherr.InvalidCredentials, "invalid or already used token")
	}
	octx, cancel := e.opCtx(ctx)
	defer cancel()
	u, err := e.d.Users.ConsumeVerificationToken(octx, tc.Tenant.ID, tokens.SHA256Base64URL(token), e.now())
	if err != nil {
		return nil, consumeErr(err, autherr.TokenExpired, autherr.InvalidCredentials)
	}
	e.log(ctx, tc, "VerifyEmail", method).Info("email verified", logger.UserID(u.ID))
	audit.Log(ctx, audit.EmailVerified, tc.Tenant.ID, u.ID)
	return u, nil
}

// ResendVerification emite un token nuevo si el email sigue sin verificar.
// La respuesta es la misma exista o no el email.
func (e *Engine) ResendVerification(ctx context.Context, tc *tenant.Context, email, ip string) (*Dispatch, error) {
	const method = repository.MethodEmailPassword
	email = identity.NormalizeEmail(email)
	if err := e.precheck(ctx, tc, method, "resend_verification", email, ip); err != nil {
		return nil, err
	}
	u, err := e.d.Identities.FindByIdentifier(ctx, tc.Tenant.ID, identity.Lookup{Email: email})
	if err != nil {
		if autherr.IsTransient(err) {
			return nil, err
		}
		return &Dispatch{Sent: true}, nil
	}
	if u.Methods.EmailPassword.Verified || u.Status != repository.StatusActive {
		return &Dispatch{Sent: true}, nil
	}
	tok, err := e.sendVerification(ctx, tc, u, tc.Schema.AuthMethods.EmailPassword.EmailVerification.TokenExpiry)
	if err != nil {
		return nil, err
	}
	return &Dispatch{Sent: true, DebugToken: e.debug(tok)}, nil
}

// RequestPasswordReset responde igual exista o no el email.
func (e *Engine) RequestPasswordReset(ctx context.Context, tc *tenant.Context, email, ip string) (*Dispatch, error) {
	const method = repository.MethodEmailPassword
	email = identity.NormalizeEmail(email)
	if err := e.precheck(ctx, tc, method, "password_reset", email, ip); err != nil {
		return nil, err
	}
	log := e.log(ctx, tc, "RequestPasswordReset", method)

	u, err := e.d.Identities.FindByIdentifier(ctx, tc.Tenant.ID, identity.Lookup{Email: email})
	if err != nil {
		if autherr.IsTransient(err) {
			return nil, err
		}
		log.Debug("password reset for unknown email")
		return &Dispatch{Sent: true}, nil
	}
	if u.Status != repository.StatusActive {
		log.Debug("password reset for inactive account", logger.UserID(u.ID))
		return &Dispatch{Sent: true}, nil
	}

	tok, err := e.d.Random.Opaque(32)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.Internal, "generate reset token")
	}
	ttl := e.d.Config.ResetTTL
	octx, cancel := e.opCtx(ctx)
	err = e.d.Users.SetResetToken(octx, tc.Tenant.ID, u.ID, tokens.SHA256Base64URL(tok), e.now().Add(ttl))
	cancel()
	if err != nil {
		return nil, autherr.Store(err, "store reset token")
	}
	e.send(ctx, tc, notify.Message{
		Channel:     notify.ChannelEmail,
		To:          u.Email,
		TemplateKey: notify.TemplateResetPassword,
		Params: map[string]string{
			"Email": u.Email,
			"Link":  e.link(tc, "/v1/auth/password/reset", tok),
			"TTL":   ttl.String(),
		},
	})
	log.Info("password reset requested", logger.UserID(u.ID))
	return &Dispatch{Sent: true, DebugToken: e.debug(tok)}, nil
}

// ResetPassword consume el token de reset, guarda el nuevo hash y desbloquea.
func (e *Engine) ResetPassword(ctx context.Context, tc *tenant.Context, token, newPassword string) (*repository.User, error) {
	const method = repository.MethodEmailPassword
	if err := e.precheck(ctx, tc, method, "password_reset_confirm", "", ""); err != nil {
		return nil, err
	}
	violations := schema.CheckPasswordStrength(newPassword, tc.Schema.AuthMethods.EmailPassword.PasswordPolicy)
	if e.d.Blacklist.Contains(newPassword) {
		violations = append(violations, password.ViolationCommon)
	}
	if len(violations) > 0 {
		return nil, autherr.Validation("password does not meet policy", violations)
	}
	if token == "" {
		return nil, autherr.New(autherr.InvalidCredentials, "invalid or already used token")
	}

	hash, err := e.hashPassword(ctx, newPassword)
	if err != nil {
		return nil, err
	}
	octx, cancel := e.opCtx(ctx)
	defer cancel()
	u, err := e.d.Users.ConsumeResetToken(octx, tc.Tenant.ID, tokens.SHA256Base64URL(token), e.now(), hash)
	if err != nil {
		return nil, consumeErr(err, autherr.TokenExpired, autherr.InvalidCredentials)
	}
	e.log(ctx, tc, "ResetPassword", method).Info("password reset", logger.UserID(u.ID))
	audit.Log(ctx, audit.PasswordReset, tc.Tenant.ID, u.ID)
	return u, nil
}

// ChangePassword para un usuario autenticado: exige el password actual.
func (e *Engine) ChangePassword(ctx context.Context, tc *tenant.Context, userID, current, next string) error {
	const method = repository.MethodEmailPassword
	if err := e.precheck(ctx, tc, method, "change_password", userID, ""); err != nil {
		return err
	}
	u, err := e.d.Identities.GetByID(ctx, tc.Tenant.ID, userID)
	if err != nil {
		return err
	}
	if err := statusErr(u); err != nil {
		return err
	}
	vctx, cancel := e.opCtx(ctx)
	ok, err := password.VerifyContext(vctx, u.PasswordHash, current)
	cancel()
	if err != nil {
		return autherr.Wrap(err, autherr.TransientStoreFailure, "password verification timed out")
	}
	if !ok {
		return autherr.New(autherr.InvalidCredentials, "invalid credentials")
	}
	violations := schema.CheckPasswordStrength(next, tc.Schema.AuthMethods.EmailPassword.PasswordPolicy)
	if e.d.Blacklist.Contains(next) {
		violations = append(violations, password.ViolationCommon)
	}
	if len(violations) > 0 {
		return autherr.Validation("password does not meet policy", violations)
	}
	u.NewPassword = next
	if err := e.d.Identities.Save(ctx, u); err != nil {
		return err
	}
	e.log(ctx, tc, "ChangePassword", method).Info("password changed", logger.UserID(u.ID))
	audit.Log(ctx, audit.PasswordChanged, tc.Tenant.ID, u.ID)
	return nil
}

func (e *Engine) hashPassword(ctx context.Context, plain string) (string, error) {
	hctx, cancel := e.opCtx(ctx)
	defer cancel()
	h, err := password.HashContext(hctx, e.d.Identities.Hasher(), plain)
	if err != nil {
		return "", autherr.Store(err, "hash password")
	}
	return h, nil
}
