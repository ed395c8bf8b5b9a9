// Package facebook implementa el login con Facebook (Graph API). Facebook no
// informa si el email está verificado, así que nunca se marca como tal.
package facebook

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

const defaultAPIBase = "https://graph.facebook.com"

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
		Base:    oauth.NewBase("facebook", cfg, endpoints.Facebook, []string{"email", "public_profile"}),
		apiBase: strings.TrimRight(api, "/"),
	}
}

type me struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

func (p *Provider) Profile(ctx context.Context, tok *oauth2.Token) (*oauth.Profile, error) {
	var m me
	raw, err := p.GetJSON(ctx, tok, p.apiBase+"/me?fields=id,name,email,picture", &m)
	if err != nil {
		return nil, err
	}
	return &oauth.Profile{
		ExternalID: m.ID,
		Email:      strings.ToLower(m.Email),
		Name:       m.Name,
		AvatarURL:  m.Picture.Data.URL,
		Raw:        raw,
	}, nil
}
