// Package github implementa el login con GitHub. GitHub no emite ID tokens:
// el perfil sale de /user y el email verificado de /user/emails.
package github

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/dropDatabas3/tenantauth/internal/oauth"
)

const defaultAPIBase = "https://api.github.com"

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
		Base:    oauth.NewBase("github", cfg, endpoints.GitHub, []string{"read:user", "user:email"}),
		apiBase: strings.TrimRight(api, "/"),
	}
}

type userInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *Provider) Profile(ctx context.Context, tok *oauth2.Token) (*oauth.Profile, error) {
	var ui userInfo
	raw, err := p.GetJSON(ctx, tok, p.apiBase+"/user", &ui)
	if err != nil {
		return nil, err
	}
	prof := &oauth.Profile{
		ExternalID: strconv.FormatInt(ui.ID, 10),
		Name:       ui.Name,
		AvatarURL:  ui.AvatarURL,
		Raw:        raw,
	}
	if prof.Name == "" {
		prof.Name = ui.Login
	}

	// /user devuelve el email público sin flag de verificación; el flag
	// solo está en /user/emails.
	var emails []emailInfo
	if _, err := p.GetJSON(ctx, tok, p.apiBase+"/user/emails", &emails); err == nil {
		if e, ok := pickEmail(emails); ok {
			prof.Email = strings.ToLower(e.Email)
			prof.EmailVerified = e.Verified
			return prof, nil
		}
	}
	prof.Email = strings.ToLower(ui.Email)
	return prof, nil
}

// pickEmail: primario verificado, después cualquier verificado, después el primero.
func pickEmail(emails []emailInfo) (emailInfo, bool) {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e, true
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e, true
		}
	}
	if len(emails) > 0 {
		return emails[0], true
	}
	return emailInfo{}, false
}
