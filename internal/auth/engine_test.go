package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/guard"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/lockout"
	"github.com/dropDatabas3/tenantauth/internal/notify"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
	"github.com/dropDatabas3/tenantauth/internal/social"
	"github.com/dropDatabas3/tenantauth/internal/store/adapters/memory"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

const goodPassword = "Sup3r$ecret"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeProvider responde con un perfil fijo para cualquier code != "bad".
type fakeProvider struct {
	name    string
	profile oauth.Profile
}

func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.test/authorize?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code == "bad" {
		return nil, oauth.ErrExchange
	}
	return &oauth2.Token{AccessToken: "at-" + code}, nil
}

func (p *fakeProvider) Profile(context.Context, *oauth2.Token) (*oauth.Profile, error) {
	prof := p.profile
	return &prof, nil
}

type fakeResolver map[string]*fakeProvider

func (r fakeResolver) Provider(_ *repository.ValidationSchema, name string) (oauth.Provider, error) {
	p, ok := r[name]
	if !ok {
		return nil, social.ErrUnknownProvider
	}
	return p, nil
}

type fixture struct {
	engine    *Engine
	tc        *tenant.Context
	users     repository.UserRepository
	recorder  *notify.Recorder
	clock     *clock
	providers fakeResolver
}

func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	users := memory.New().Users()
	rec := &notify.Recorder{}
	providers := fakeResolver{
		"google": {name: "google", profile: oauth.Profile{ExternalID: "g-1", Email: "ana@acme.io", EmailVerified: true, Name: "Ana"}},
	}
	tn := &repository.Tenant{
		ID:        "5b0c8f8e-4a9f-4c59-9a43-1f0f6a1c2d10",
		Name:      "Acme",
		Slug:      "acme",
		JWTSecret: "acme-signing-secret-0123456789abcdef",
		Features:  repository.Features{}.Normalize(),
		Settings:  repository.DefaultSettings(),
		Active:    true,
	}
	sc := schema.Default(tn.ID)
	states := cache.NewMemory("")

	d := Deps{
		Identities: identity.NewStore(identity.StoreDeps{Users: users, Hasher: password.Bcrypt{Cost: 4}}),
		Users:      users,
		Tokens:     jwt.NewService(jwt.Config{Now: clk.Now}, users),
		Lockout:    lockout.NewTracker(users, 0, clk.Now, 0),
		Notifier:   rec,
		States:     states,
		Providers:  providers,
		Blacklist:  mustBlacklist(t, "password123\nqwerty\n"),
		Now:        clk.Now,
		Config:     Config{BaseURL: "https://auth.acme.io", EchoTokens: true},
	}
	for _, o := range opts {
		o(&d)
	}
	return &fixture{
		engine:    NewEngine(d),
		tc:        &tenant.Context{Tenant: tn, Schema: sc},
		users:     users,
		recorder:  rec,
		clock:     clk,
		providers: providers,
	}
}

func mustBlacklist(t *testing.T, list string) *password.Blacklist {
	t.Helper()
	bl, err := password.ReadBlacklist(strings.NewReader(list))
	require.NoError(t, err)
	return bl
}

func requireKind(t *testing.T, err error, kind autherr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind.String(), autherr.KindOf(err).String(), "err: %v", err)
}

func (f *fixture) register(t *testing.T, email string) *RegisterResult {
	t.Helper()
	res, err := f.engine.Register(context.Background(), f.tc, RegisterInput{Email: email, Password: goodPassword})
	require.NoError(t, err)
	return res
}

// ─── Email + password ───

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.register(t, "  Ana@Acme.io ")
	require.True(t, res.VerificationRequired)
	require.NotEmpty(t, res.DebugToken)
	require.NotNil(t, res.Tokens)
	require.Equal(t, "ana@acme.io", res.User.Email)
	require.False(t, res.User.Methods.EmailPassword.Verified)
	require.Equal(t, []string{"user"}, res.User.Roles)

	msg, ok := f.recorder.Last(notify.TemplateVerifyEmail)
	require.True(t, ok)
	require.Equal(t, "ana@acme.io", msg.To)
	require.Contains(t, msg.Params["Link"], "https://auth.acme.io/v1/auth/verify-email?")

	s, err := f.engine.Login(ctx, f.tc, LoginInput{Email: "ANA@acme.io", Password: goodPassword, IP: "10.0.0.1"})
	require.NoError(t, err)
	require.Equal(t, res.User.ID, s.User.ID)

	u, claims, err := f.engine.Validate(ctx, f.tc, s.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, u.ID)
	require.Equal(t, f.tc.Tenant.ID, claims.TenantID)
}

func TestRegisterReportsEveryViolation(t *testing.T) {
	f := newFixture(t)
	f.tc.Schema.CustomFields = []repository.FieldDefinition{{Name: "company", Type: repository.FieldString, Required: true}}

	_, err := f.engine.Register(context.Background(), f.tc, RegisterInput{Email: "not-an-email", Password: "abc"})
	requireKind(t, err, autherr.ValidationFailed)
	v := autherr.ViolationsOf(err)
	assert.Contains(t, v, "invalid_email")
	assert.Contains(t, v, password.ViolationMinLength)
	assert.Contains(t, v, password.ViolationUppercase)
	assert.Contains(t, v, password.ViolationDigit)
	assert.Contains(t, v, password.ViolationSpecial)
	assert.NotContains(t, v, password.ViolationLowercase)
	assert.Len(t, v, 6, "%v", v)
}

func TestRegisterRejectsCommonPassword(t *testing.T) {
	f := newFixture(t)
	f.tc.Schema.AuthMethods.EmailPassword.PasswordPolicy = repository.PasswordPolicy{MinLength: 6}

	_, err := f.engine.Register(context.Background(), f.tc, RegisterInput{Email: "a@acme.io", Password: "Password123"})
	requireKind(t, err, autherr.ValidationFailed)
	require.Equal(t, []string{password.ViolationCommon}, autherr.ViolationsOf(err))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ana@acme.io")
	_, err := f.engine.Register(context.Background(), f.tc, RegisterInput{Email: "ANA@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.DuplicateIdentity)
}

func TestRegisterWithoutVerification(t *testing.T) {
	f := newFixture(t)
	f.tc.Schema.AuthMethods.EmailPassword.EmailVerification.Required = false

	res := f.register(t, "ana@acme.io")
	require.False(t, res.VerificationRequired)
	require.Empty(t, res.DebugToken)
	require.True(t, res.User.Methods.EmailPassword.Verified)
	_, ok := f.recorder.Last(notify.TemplateVerifyEmail)
	require.False(t, ok)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@acme.io")

	_, err := f.engine.Login(ctx, f.tc, LoginInput{Email: "nobody@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.UserNotFound)

	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: "Wr0ng!pass"})
	requireKind(t, err, autherr.InvalidCredentials)

	u, err := f.users.FindByEmail(ctx, f.tc.Tenant.ID, "ana@acme.io")
	require.NoError(t, err)
	require.Equal(t, 1, u.Security.FailedAttempts)

	// un login exitoso resetea el contador
	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	require.NoError(t, err)
	u, err = f.users.FindByEmail(ctx, f.tc.Tenant.ID, "ana@acme.io")
	require.NoError(t, err)
	require.Zero(t, u.Security.FailedAttempts)
}

func TestLockoutAfterThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tc.Tenant.Settings.AllowedLoginAttempts = 3
	res := f.register(t, "ana@acme.io")

	for i := 0; i < 3; i++ {
		_, err := f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: "Wr0ng!pass"})
		requireKind(t, err, autherr.InvalidCredentials)
	}
	msg, ok := f.recorder.Last(notify.TemplateUserLocked)
	require.True(t, ok)
	require.Equal(t, "ana@acme.io", msg.To)

	// bloqueada aún con el password correcto
	_, err := f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.AccountLocked)

	// sin desbloqueo por tiempo
	f.clock.Advance(48 * time.Hour)
	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.AccountLocked)

	require.NoError(t, f.engine.Unlock(ctx, f.tc.Tenant.ID, res.User.ID))
	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	require.NoError(t, err)
}

func TestLockoutLoggedOnce(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))
	f.tc.Tenant.Settings.AllowedLoginAttempts = 2
	f.register(t, "ana@acme.io")

	for i := 0; i < 2; i++ {
		_, err := f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: "Wr0ng!pass"})
		requireKind(t, err, autherr.InvalidCredentials)
	}
	locks := logs.Filter(func(e observer.LoggedEntry) bool {
		return strings.Contains(e.Message, "locked") || e.ContextMap()["event"] == audit.UserLocked
	})
	require.Equal(t, 1, locks.Len(), "%v", locks.All())
	assert.Equal(t, true, locks.All()[0].ContextMap()["audit"])
}

func TestLoginSuspendedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "ana@acme.io")
	require.NoError(t, f.users.SetStatus(ctx, f.tc.Tenant.ID, res.User.ID, repository.StatusSuspended))

	_, err := f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.AccountLocked)
}

func TestVerifyEmailSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "ana@acme.io")

	u, err := f.engine.VerifyEmail(ctx, f.tc, res.DebugToken)
	require.NoError(t, err)
	require.True(t, u.Methods.EmailPassword.Verified)

	_, err = f.engine.VerifyEmail(ctx, f.tc, res.DebugToken)
	requireKind(t, err, autherr.InvalidCredentials)
}

func TestVerifyEmailExpired(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "ana@acme.io")
	f.clock.Advance(25 * time.Hour)

	_, err := f.engine.VerifyEmail(context.Background(), f.tc, res.DebugToken)
	requireKind(t, err, autherr.TokenExpired)
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ana@acme.io")
	f.recorder.Reset()

	unknown, err := f.engine.RequestPasswordReset(ctx, f.tc, "ghost@acme.io", "")
	require.NoError(t, err)
	known, err := f.engine.RequestPasswordReset(ctx, f.tc, "ana@acme.io", "")
	require.NoError(t, err)
	require.Equal(t, unknown.Sent, known.Sent)
	require.Len(t, f.recorder.Messages(), 1)

	_, err = f.engine.ResetPassword(ctx, f.tc, known.DebugToken, "weak")
	requireKind(t, err, autherr.ValidationFailed)

	const next = "N3w!Passw0rd"
	_, err = f.engine.ResetPassword(ctx, f.tc, known.DebugToken, next)
	require.NoError(t, err)
	_, err = f.engine.ResetPassword(ctx, f.tc, known.DebugToken, next)
	requireKind(t, err, autherr.InvalidCredentials)

	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.InvalidCredentials)
	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: next})
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "ana@acme.io")

	err := f.engine.ChangePassword(ctx, f.tc, res.User.ID, "Wr0ng!pass", "N3w!Passw0rd")
	requireKind(t, err, autherr.InvalidCredentials)
	require.NoError(t, f.engine.ChangePassword(ctx, f.tc, res.User.ID, goodPassword, "N3w!Passw0rd"))

	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: "N3w!Passw0rd"})
	require.NoError(t, err)
}

// ─── Phone SMS ───

func enableSMS(f *fixture) {
	f.tc.Schema.AuthMethods.PhoneSMS.Enabled = true
}

func TestSMSCodeFlow(t *testing.T) {
	f := newFixture(t)
	enableSMS(f)
	ctx := context.Background()

	d, err := f.engine.RequestSMSCode(ctx, f.tc, "+1 (555) 010-0200", "")
	require.NoError(t, err)
	require.True(t, d.Sent)
	require.Len(t, d.DebugToken, 6)
	msg, ok := f.recorder.Last(notify.TemplateSMSCode)
	require.True(t, ok)
	require.Equal(t, notify.ChannelSMS, msg.Channel)
	require.Equal(t, "+15550100200", msg.To)

	wrong := "000000"
	if d.DebugToken == wrong {
		wrong = "111111"
	}
	_, err = f.engine.VerifySMSCode(ctx, f.tc, "+15550100200", wrong, "")
	requireKind(t, err, autherr.UserNotFound)

	s, err := f.engine.VerifySMSCode(ctx, f.tc, "+15550100200", d.DebugToken, "")
	require.NoError(t, err)
	require.True(t, s.User.Methods.PhoneSMS.Verified)

	_, err = f.engine.VerifySMSCode(ctx, f.tc, "+15550100200", d.DebugToken, "")
	requireKind(t, err, autherr.UserNotFound)
}

func TestSMSCodeExpired(t *testing.T) {
	f := newFixture(t)
	enableSMS(f)
	ctx := context.Background()

	d, err := f.engine.RequestSMSCode(ctx, f.tc, "+15550100200", "")
	require.NoError(t, err)
	f.clock.Advance(6 * time.Minute)

	_, err = f.engine.VerifySMSCode(ctx, f.tc, "+15550100200", d.DebugToken, "")
	requireKind(t, err, autherr.CodeExpired)
}

func TestSMSReusesExistingUser(t *testing.T) {
	f := newFixture(t)
	enableSMS(f)
	ctx := context.Background()

	_, err := f.engine.RequestSMSCode(ctx, f.tc, "+15550100200", "")
	require.NoError(t, err)
	d, err := f.engine.RequestSMSCode(ctx, f.tc, "+15550100200", "")
	require.NoError(t, err)

	s, err := f.engine.VerifySMSCode(ctx, f.tc, "+15550100200", d.DebugToken, "")
	require.NoError(t, err)
	again, err := f.users.FindByPhone(ctx, f.tc.Tenant.ID, "+15550100200")
	require.NoError(t, err)
	require.Equal(t, s.User.ID, again.ID)
}

// ─── Magic link ───

func enableMagicLink(f *fixture, domains ...string) {
	f.tc.Schema.AuthMethods.MagicLink.Enabled = true
	f.tc.Schema.AuthMethods.MagicLink.AllowedDomains = domains
}

func TestMagicLinkDisabledByDefault(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.RequestMagicLink(context.Background(), f.tc, MagicLinkInput{Email: "ana@acme.io"})
	requireKind(t, err, autherr.MethodNotEnabled)
}

func TestMagicLinkSingleUseUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	enableMagicLink(f)
	ctx := context.Background()

	d, err := f.engine.RequestMagicLink(ctx, f.tc, MagicLinkInput{Email: "ana@acme.io"})
	require.NoError(t, err)
	msg, ok := f.recorder.Last(notify.TemplateMagicLink)
	require.True(t, ok)
	require.Equal(t, notify.ChannelEmail, msg.Channel)
	require.Contains(t, msg.Params["Link"], "/v1/auth/magic-link/verify?")

	var (
		wg      sync.WaitGroup
		success int32
		invalid int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.VerifyMagicLink(ctx, f.tc, d.DebugToken, "")
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case autherr.Is(err, autherr.InvalidCredentials):
				atomic.AddInt32(&invalid, 1)
			default:
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, success)
	require.EqualValues(t, 7, invalid)
}

func TestMagicLinkExpired(t *testing.T) {
	f := newFixture(t)
	enableMagicLink(f)
	ctx := context.Background()

	d, err := f.engine.RequestMagicLink(ctx, f.tc, MagicLinkInput{Email: "ana@acme.io"})
	require.NoError(t, err)
	f.clock.Advance(25 * time.Hour)
	_, err = f.engine.VerifyMagicLink(ctx, f.tc, d.DebugToken, "")
	requireKind(t, err, autherr.TokenExpired)
}

func TestMagicLinkInputRules(t *testing.T) {
	f := newFixture(t)
	enableMagicLink(f, "acme.io")
	ctx := context.Background()

	_, err := f.engine.RequestMagicLink(ctx, f.tc, MagicLinkInput{})
	requireKind(t, err, autherr.ValidationFailed)
	_, err = f.engine.RequestMagicLink(ctx, f.tc, MagicLinkInput{Email: "a@acme.io", Phone: "+15550100200"})
	requireKind(t, err, autherr.ValidationFailed)

	_, err = f.engine.RequestMagicLink(ctx, f.tc, MagicLinkInput{Email: "a@other.io"})
	requireKind(t, err, autherr.ValidationFailed)
	require.Equal(t, []string{"domain_not_allowed"}, autherr.ViolationsOf(err))

	d, err := f.engine.RequestMagicLink(ctx, f.tc, MagicLinkInput{Phone: "+15550100200"})
	require.NoError(t, err)
	require.True(t, d.Sent)
	msg, ok := f.recorder.Last(notify.TemplateMagicLink)
	require.True(t, ok)
	require.Equal(t, notify.ChannelSMS, msg.Channel)
}

func TestNotificationFailureIsSoft(t *testing.T) {
	f := newFixture(t)
	enableMagicLink(f)
	f.recorder.Err = errors.New("smtp down")

	d, err := f.engine.RequestMagicLink(context.Background(), f.tc, MagicLinkInput{Email: "ana@acme.io"})
	require.NoError(t, err)
	require.False(t, d.Sent)
	require.NotEmpty(t, d.DebugToken)
}

// ─── Social ───

func enableGoogle(f *fixture) {
	f.tc.Schema.AuthMethods.SocialGoogle.Enabled = true
	f.tc.Schema.AuthMethods.SocialGoogle.ClientID = "google-client"
}

func TestSocialFlowCreatesThenReusesUser(t *testing.T) {
	f := newFixture(t)
	enableGoogle(f)
	ctx := context.Background()

	start, err := f.engine.StartSocial(ctx, f.tc, "google", "")
	require.NoError(t, err)
	require.Contains(t, start.AuthURL, start.State)

	s, err := f.engine.SocialCallback(ctx, f.tc, "google", start.State, "code-1", "")
	require.NoError(t, err)
	require.Equal(t, "ana@acme.io", s.User.Email)
	require.True(t, s.User.Methods.EmailPassword.Verified)
	require.Equal(t, "g-1", s.User.Methods.Social["google"].ExternalID)

	// state de un solo uso
	_, err = f.engine.SocialCallback(ctx, f.tc, "google", start.State, "code-1", "")
	requireKind(t, err, autherr.InvalidState)

	start, err = f.engine.StartSocial(ctx, f.tc, "google", "")
	require.NoError(t, err)
	again, err := f.engine.SocialCallback(ctx, f.tc, "google", start.State, "code-2", "")
	require.NoError(t, err)
	require.Equal(t, s.User.ID, again.User.ID)
}

func TestSocialLinksExistingVerifiedEmail(t *testing.T) {
	f := newFixture(t)
	enableGoogle(f)
	ctx := context.Background()
	res := f.register(t, "ana@acme.io")

	start, err := f.engine.StartSocial(ctx, f.tc, "google", "")
	require.NoError(t, err)
	s, err := f.engine.SocialCallback(ctx, f.tc, "google", start.State, "code-1", "")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, s.User.ID)

	u, err := f.users.FindBySocial(ctx, f.tc.Tenant.ID, "google", "g-1")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, u.ID)
}

func TestSocialUnverifiedEmailNotLinked(t *testing.T) {
	f := newFixture(t)
	enableGoogle(f)
	f.providers["google"].profile.EmailVerified = false
	ctx := context.Background()
	res := f.register(t, "ana@acme.io")

	start, err := f.engine.StartSocial(ctx, f.tc, "google", "")
	require.NoError(t, err)
	s, err := f.engine.SocialCallback(ctx, f.tc, "google", start.State, "code-1", "")
	require.NoError(t, err)
	require.NotEqual(t, res.User.ID, s.User.ID)
	require.Empty(t, s.User.Email)
}

func TestSocialStateErrors(t *testing.T) {
	f := newFixture(t)
	enableGoogle(f)
	f.tc.Schema.AuthMethods.SocialGithub.Enabled = true
	f.providers["github"] = &fakeProvider{name: "github", profile: oauth.Profile{ExternalID: "gh-1"}}
	ctx := context.Background()

	_, err := f.engine.SocialCallback(ctx, f.tc, "google", "never-issued", "code", "")
	requireKind(t, err, autherr.InvalidState)

	start, err := f.engine.StartSocial(ctx, f.tc, "google", "")
	require.NoError(t, err)
	_, err = f.engine.SocialCallback(ctx, f.tc, "github", start.State, "code", "")
	requireKind(t, err, autherr.InvalidState)

	start, err = f.engine.StartSocial(ctx, f.tc, "google", "")
	require.NoError(t, err)
	_, err = f.engine.SocialCallback(ctx, f.tc, "google", start.State, "bad", "")
	requireKind(t, err, autherr.InvalidCredentials)

	_, err = f.engine.StartSocial(ctx, f.tc, "myspace", "")
	requireKind(t, err, autherr.MethodNotEnabled)
	_, err = f.engine.StartSocial(ctx, f.tc, "facebook", "")
	requireKind(t, err, autherr.MethodNotEnabled)
}

// ─── Sesión ───

func TestRefreshAndDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res := f.register(t, "ana@acme.io")

	f.clock.Advance(time.Minute)
	pair, err := f.engine.Refresh(ctx, f.tc, res.Tokens.RefreshToken, "")
	require.NoError(t, err)
	require.NotEqual(t, res.Tokens.AccessToken, pair.AccessToken)

	_, err = f.engine.Refresh(ctx, f.tc, res.Tokens.AccessToken, "")
	requireKind(t, err, autherr.InvalidCredentials)

	f.engine.Logout(ctx, f.tc, pair.AccessToken, pair.RefreshToken)

	require.NoError(t, f.engine.DeleteAccount(ctx, f.tc, res.User.ID))
	requireKind(t, f.engine.DeleteAccount(ctx, f.tc, res.User.ID), autherr.UserNotFound)

	_, err = f.engine.Refresh(ctx, f.tc, pair.RefreshToken, "")
	requireKind(t, err, autherr.UserNotFound)
	_, _, err = f.engine.Validate(ctx, f.tc, pair.AccessToken)
	requireKind(t, err, autherr.UserNotFound)

	_, err = f.engine.Login(ctx, f.tc, LoginInput{Email: "ana@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.UserNotFound)
}

func TestTokensAreTenantBound(t *testing.T) {
	f := newFixture(t)
	res := f.register(t, "ana@acme.io")

	other := &tenant.Context{
		Tenant: &repository.Tenant{ID: "0d7d1c8a-9b53-4d0e-8a9e-5a43c1f1b2aa", Slug: "globex", JWTSecret: f.tc.Tenant.JWTSecret, Active: true},
		Schema: schema.Default("globex"),
	}
	_, _, err := f.engine.Validate(context.Background(), other, res.Tokens.AccessToken)
	requireKind(t, err, autherr.InvalidCredentials)
}

// ─── Guards ───

func TestGuardRefusalStopsFlow(t *testing.T) {
	var seen []guard.Request
	f := newFixture(t, func(d *Deps) {
		d.Guard = guard.Func(func(_ context.Context, req guard.Request) error {
			seen = append(seen, req)
			if req.Op == "login" {
				return autherr.New(autherr.QuotaExceeded, "too many attempts")
			}
			return nil
		})
	})
	f.register(t, "ana@acme.io")

	_, err := f.engine.Login(context.Background(), f.tc, LoginInput{Email: "Ana@acme.io", Password: goodPassword, IP: "10.1.1.1"})
	requireKind(t, err, autherr.QuotaExceeded)
	require.Len(t, seen, 2)
	require.Equal(t, guard.Request{
		TenantID: f.tc.Tenant.ID,
		Method:   string(repository.MethodEmailPassword),
		Op:       "login",
		Key:      "ana@acme.io",
		IP:       "10.1.1.1",
	}, seen[1])

	u, err := f.users.FindByEmail(context.Background(), f.tc.Tenant.ID, "ana@acme.io")
	require.NoError(t, err)
	require.Zero(t, u.Security.FailedAttempts)
}

func TestNilTenantContext(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Login(context.Background(), nil, LoginInput{Email: "a@acme.io", Password: goodPassword})
	requireKind(t, err, autherr.TenantNotFound)
}

func TestSameEmailAcrossTenants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.register(t, "shared@example.com")

	globex := &tenant.Context{
		Tenant: &repository.Tenant{
			ID:        "0d7d1c8a-9b53-4d0e-8a9e-5a43c1f1b2aa",
			Slug:      "globex",
			JWTSecret: "globex-signing-secret-0123456789abcd",
			Features:  repository.Features{}.Normalize(),
			Active:    true,
		},
		Schema: schema.Default("0d7d1c8a-9b53-4d0e-8a9e-5a43c1f1b2aa"),
	}
	res, err := f.engine.Register(ctx, globex, RegisterInput{Email: "shared@example.com", Password: goodPassword})
	require.NoError(t, err)
	require.NotEqual(t, acme.User.ID, res.User.ID)

	stored, err := f.users.GetByID(ctx, globex.Tenant.ID, res.User.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.PasswordHash)
	require.NotEqual(t, goodPassword, stored.PasswordHash)
}
