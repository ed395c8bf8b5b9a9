package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
)

// Providers maneja GET /v1/auth/social: proveedores habilitados del tenant.
func (c *Controller) Providers(w http.ResponseWriter, r *http.Request) {
	list, err := c.engine.SocialProviders(mw.GetTenant(r.Context()))
	if err != nil {
		c.fail(w, r, "Providers", err)
		return
	}
	out := dto.ProvidersResponse{Providers: make([]dto.ProviderResponse, 0, len(list))}
	for _, p := range list {
		out.Providers = append(out.Providers, dto.ProviderResponse{
			Name:     p.Name,
			ClientID: p.ClientID,
			Scopes:   p.Scopes,
			AuthPath: "/v1/auth/social/" + p.Name,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// StartSocial maneja GET /v1/auth/social/{provider}. Redirige al proveedor;
// con ?mode=json devuelve la URL y el state.
func (c *Controller) StartSocial(w http.ResponseWriter, r *http.Request) {
	res, err := c.engine.StartSocial(r.Context(), mw.GetTenant(r.Context()), chi.URLParam(r, "provider"), mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "StartSocial", err)
		return
	}
	if r.URL.Query().Get("mode") == "json" {
		writeJSON(w, http.StatusOK, dto.SocialStartResponse{AuthURL: res.AuthURL, State: res.State})
		return
	}
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// SocialCallback maneja GET /v1/auth/social/{provider}/callback.
func (c *Controller) SocialCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s, err := c.engine.SocialCallback(r.Context(), mw.GetTenant(r.Context()),
		chi.URLParam(r, "provider"), q.Get("state"), q.Get("code"), mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "SocialCallback", err)
		return
	}
	c.session(w, http.StatusOK, s)
}
