package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/cache"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/social"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// SocialStart es la URL de autorización y el state de un solo uso.
type SocialStart struct {
	AuthURL string
	State   string
}

func stateKey(tenantID, state string) string { return "oauth_state:" + tenantID + ":" + state }

func (e *Engine) provider(tc *tenant.Context, name string) (oauth.Provider, error) {
	if e.d.Providers == nil {
		return nil, autherr.New(autherr.MethodNotEnabled, "social login not configured")
	}
	p, err := e.d.Providers.Provider(tc.Schema, name)
	switch {
	case errors.Is(err, social.ErrUnknownProvider), errors.Is(err, social.ErrNotConfigured):
		return nil, autherr.Wrap(err, autherr.MethodNotEnabled, "social provider not available")
	case err != nil:
		return nil, autherr.Wrap(err, autherr.Internal, "social provider")
	}
	return p, nil
}

// StartSocial arma la URL de autorización y guarda el state con TTL.
func (e *Engine) StartSocial(ctx context.Context, tc *tenant.Context, providerName, ip string) (*SocialStart, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	method, ok := repository.SocialMethodFor(providerName)
	if !ok {
		return nil, autherr.New(autherr.MethodNotEnabled, "unknown social provider")
	}
	if err := e.precheck(ctx, tc, method, "social_start", "", ip); err != nil {
		return nil, err
	}
	if e.d.Providers == nil || e.d.States == nil {
		return nil, autherr.New(autherr.MethodNotEnabled, "social login not configured")
	}
	p, err := e.provider(tc, providerName)
	if err != nil {
		return nil, err
	}
	state, err := e.d.Random.Opaque(32)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.Internal, "generate state")
	}
	octx, cancel := e.opCtx(ctx)
	err = e.d.States.Set(octx, stateKey(tc.Tenant.ID, state), providerName, e.d.Config.StateTTL)
	cancel()
	if err != nil {
		return nil, autherr.Wrap(err, autherr.TransientStoreFailure, "store oauth state")
	}
	e.log(ctx, tc, "StartSocial", method).Debug("social flow started", logger.Provider(providerName))
	return &SocialStart{AuthURL: p.AuthCodeURL(state), State: state}, nil
}

// SocialCallback valida el state (un solo uso), canjea el code y resuelve el
// usuario: por identidad social vinculada, por email verificado por el
// proveedor, o creando uno nuevo.
func (e *Engine) SocialCallback(ctx context.Context, tc *tenant.Context, providerName, state, code, ip string) (_ *Session, err error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	method, ok := repository.SocialMethodFor(providerName)
	if !ok {
		return nil, autherr.New(autherr.MethodNotEnabled, "unknown social provider")
	}
	defer func() { observe(method, err) }()

	if err := e.precheck(ctx, tc, method, "social_callback", "", ip); err != nil {
		return nil, err
	}
	if e.d.Providers == nil || e.d.States == nil {
		return nil, autherr.New(autherr.MethodNotEnabled, "social login not configured")
	}
	log := e.log(ctx, tc, "SocialCallback", method).With(logger.Provider(providerName))

	if state == "" {
		return nil, autherr.New(autherr.InvalidState, "missing state")
	}
	octx, cancel := e.opCtx(ctx)
	stored, err := e.d.States.Take(octx, stateKey(tc.Tenant.ID, state))
	cancel()
	if cache.IsNotFound(err) {
		return nil, autherr.New(autherr.InvalidState, "unknown or expired state")
	}
	if err != nil {
		return nil, autherr.Wrap(err, autherr.TransientStoreFailure, "load oauth state")
	}
	if stored != providerName {
		return nil, autherr.New(autherr.InvalidState, "state issued for another provider")
	}
	if code == "" {
		return nil, autherr.New(autherr.InvalidCredentials, "missing authorization code")
	}

	p, err := e.provider(tc, providerName)
	if err != nil {
		return nil, err
	}
	prof, err := e.fetchProfile(ctx, p, code)
	if err != nil {
		log.Info("social exchange failed", logger.Err(err))
		return nil, err
	}

	u, err := e.resolveSocial(ctx, tc, providerName, prof)
	if err != nil {
		return nil, err
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}
	s, err := e.issue(ctx, tc, u, ip)
	if err != nil {
		return nil, err
	}
	log.Info("social login succeeded", logger.UserID(u.ID))
	return s, nil
}

func (e *Engine) fetchProfile(ctx context.Context, p oauth.Provider, code string) (*oauth.Profile, error) {
	octx, cancel := e.opCtx(ctx)
	defer cancel()
	tok, err := p.Exchange(octx, code)
	if err == nil {
		var prof *oauth.Profile
		prof, err = p.Profile(octx, tok)
		if err == nil {
			if prof.ExternalID == "" {
				return nil, autherr.New(autherr.InvalidCredentials, "provider returned no user id")
			}
			return prof, nil
		}
	}
	if octx.Err() != nil {
		return nil, autherr.Wrap(err, autherr.TransientStoreFailure, "social provider timed out")
	}
	return nil, autherr.Wrap(err, autherr.InvalidCredentials, "social authentication failed")
}

func (e *Engine) resolveSocial(ctx context.Context, tc *tenant.Context, providerName string, prof *oauth.Profile) (*repository.User, error) {
	ident := repository.SocialIdentity{
		ExternalID: prof.ExternalID,
		Email:      identity.NormalizeEmail(prof.Email),
		Verified:   prof.EmailVerified,
		Data:       prof.Raw,
		LastLogin:  e.now(),
	}

	u, err := e.d.Identities.FindByIdentifier(ctx, tc.Tenant.ID, identity.Lookup{Provider: providerName, ExternalID: prof.ExternalID})
	switch {
	case err == nil:
		return u, e.linkSocial(ctx, u, providerName, ident)
	case !autherr.Is(err, autherr.UserNotFound):
		return nil, err
	}

	nid := identity.NewIdentity{
		Provider: providerName,
		Social:   &ident,
	}
	// sin email verificado por el proveedor no se vincula ni se guarda el email
	if !prof.EmailVerified || ident.Email == "" {
		return e.d.Identities.Create(ctx, tc.Tenant.ID, nid)
	}
	nid.Email = ident.Email
	nid.EmailVerified = true
	u, created, err := e.findOrCreate(ctx, tc.Tenant.ID, identity.Lookup{Email: ident.Email}, nid)
	if err != nil {
		return nil, err
	}
	if !created {
		if err := e.linkSocial(ctx, u, providerName, ident); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (e *Engine) linkSocial(ctx context.Context, u *repository.User, providerName string, ident repository.SocialIdentity) error {
	octx, cancel := e.opCtx(ctx)
	defer cancel()
	if err := e.d.Users.LinkSocial(octx, u.TenantID, u.ID, providerName, ident); err != nil {
		if repository.IsNotFound(err) {
			return autherr.New(autherr.UserNotFound, "user not found")
		}
		return autherr.Store(err, "link social identity")
	}
	if u.Methods.Social == nil {
		u.Methods.Social = map[string]repository.SocialIdentity{}
	}
	u.Methods.Social[providerName] = ident
	audit.Log(ctx, audit.SocialLinked, u.TenantID, u.ID, logger.Provider(providerName))
	return nil
}
