// Package oauth define el contrato de los proveedores sociales (code
// exchange + perfil) sobre golang.org/x/oauth2.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Profile es lo que el proveedor dice del usuario. EmailVerified solo es true
// si el proveedor lo reporta explícitamente.
type Profile struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
	Raw           map[string]any
}

// Provider es un proveedor OAuth 2.0 configurado para un tenant.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, tok *oauth2.Token) (*Profile, error)
}

// Config por tenant. Endpoint y APIBase se pisan en tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPTimeout  time.Duration
	Endpoint     *oauth2.Endpoint
	APIBase      string
}

var (
	ErrExchange = errors.New("oauth: code exchange failed")
	ErrProfile  = errors.New("oauth: profile fetch failed")
)

// Base implementa la parte común: authorize URL, exchange y GET JSON
// autenticado.
type Base struct {
	name   string
	conf   *oauth2.Config
	client *http.Client
}

func NewBase(name string, cfg Config, defaultEndpoint oauth2.Endpoint, defaultScopes []string) *Base {
	ep := defaultEndpoint
	if cfg.Endpoint != nil {
		ep = *cfg.Endpoint
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Base{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     ep,
		},
		client: &http.Client{Timeout: timeout},
	}
}

func (b *Base) Name() string { return b.name }

func (b *Base) AuthCodeURL(state string) string {
	return b.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (b *Base) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)
	tok, err := b.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExchange, b.name, err)
	}
	return tok, nil
}

// GetJSON hace GET con el token y decodifica en out. Retorna además el body
// como map para guardarlo como payload crudo.
func (b *Base) GetJSON(ctx context.Context, tok *oauth2.Token, url string, out any) (map[string]any, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)
	client := b.conf.Client(ctx, tok)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProfile, b.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProfile, b.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrProfile, b.name, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("%w: %s: decode: %v", ErrProfile, b.name, err)
		}
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	return raw, nil
}
