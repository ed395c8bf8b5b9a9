// Package social arma el proveedor OAuth de un tenant a partir de su schema.
package social

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/oauth"
	"github.com/dropDatabas3/tenantauth/internal/oauth/facebook"
	"github.com/dropDatabas3/tenantauth/internal/oauth/github"
	"github.com/dropDatabas3/tenantauth/internal/oauth/google"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
)

var (
	ErrUnknownProvider = errors.New("social: unknown provider")
	ErrNotConfigured   = errors.New("social: provider not configured for tenant")
)

// Factory construye un proveedor desde su config.
type Factory func(cfg oauth.Config) oauth.Provider

// Resolver lo consume el motor de auth.
type Resolver interface {
	Provider(sc *repository.ValidationSchema, name string) (oauth.Provider, error)
}

// Registry resuelve proveedores por nombre. Los client secrets guardados en
// el schema pueden venir sellados con secretbox.
type Registry struct {
	factories map[string]Factory
	box       *secretbox.Box
	// RedirectBaseURL: {base}/v1/auth/social/{provider}/callback
	redirectBase string
	timeout      time.Duration
}

func NewRegistry(box *secretbox.Box, redirectBaseURL string, timeout time.Duration) *Registry {
	r := &Registry{
		factories:    map[string]Factory{},
		box:          box,
		redirectBase: strings.TrimRight(redirectBaseURL, "/"),
		timeout:      timeout,
	}
	r.Register("google", func(c oauth.Config) oauth.Provider { return google.New(c) })
	r.Register("github", func(c oauth.Config) oauth.Provider { return github.New(c) })
	r.Register("facebook", func(c oauth.Config) oauth.Provider { return facebook.New(c) })
	return r
}

// Register agrega o reemplaza un proveedor (tests registran uno fake).
func (r *Registry) Register(name string, f Factory) { r.factories[name] = f }

// RedirectURL del callback de un proveedor.
func (r *Registry) RedirectURL(provider string) string {
	return r.redirectBase + "/v1/auth/social/" + provider + "/callback"
}

func (r *Registry) Provider(sc *repository.ValidationSchema, name string) (oauth.Provider, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	m, ok := schema.SocialConfig(sc, name)
	if !ok {
		// proveedor registrado pero sin entrada en el schema (solo tests)
		m = repository.SocialMethod{}
	}
	secret := m.ClientSecret
	if r.box != nil {
		plain, err := r.box.Open(secret)
		if err != nil {
			return nil, fmt.Errorf("social: open %s client secret: %w", name, err)
		}
		secret = plain
	} else if secretbox.IsSealed(secret) {
		return nil, fmt.Errorf("social: %s client secret is sealed but no key is configured", name)
	}
	if m.ClientID == "" && ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return f(oauth.Config{
		ClientID:     m.ClientID,
		ClientSecret: secret,
		RedirectURL:  r.RedirectURL(name),
		Scopes:       m.Scopes,
		HTTPTimeout:  r.timeout,
	}), nil
}
