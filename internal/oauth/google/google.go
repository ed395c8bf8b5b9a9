// Package google implementa el login con Google (OAuth 2.0 + userinfo de
// OpenID Connect).
package google

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

const defaultAPIBase = "https://openidconnect.googleapis.com"

type Provider struct {
	*oauth.Base
	apiBase string
}

func New(cfg oauth.Config) *Provider {
	api := cfg.APIBase
	if api == "" {
		api = defaultAPIBase
	}
	return &Provider{
		Base:    oauth.NewBase("google", cfg, endpoints.Google, []string{"openid", "email", "profile"}),
		apiBase: strings.TrimRight(api, "/"),
	}
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (p *Provider) Profile(ctx context.Context, tok *oauth2.Token) (*oauth.Profile, error) {
	var ui userInfo
	raw, err := p.GetJSON(ctx, tok, p.apiBase+"/v1/userinfo", &ui)
	if err != nil {
		return nil, err
	}
	return &oauth.Profile{
		ExternalID:    ui.Sub,
		Email:         strings.ToLower(ui.Email),
		EmailVerified: ui.EmailVerified,
		Name:          ui.Name,
		AvatarURL:     ui.Picture,
		Raw:           raw,
	}, nil
}
