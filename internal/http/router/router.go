// Package router arma el árbol de rutas chi del servicio.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	engine "github.com/dropDatabas3/tenantauth/internal/auth"
	authctrl "github.com/dropDatabas3/tenantauth/internal/http/controllers/auth"
	"github.com/dropDatabas3/tenantauth/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
)

// Deps dependencias del router.
type Deps struct {
	Engine  *engine.Engine
	Tenants mw.TenantResolver
	Health  *health.Controller
	// Metrics es el handler de /metrics (nil = no se expone).
	Metrics http.Handler
	Now     func() time.Time
	// TrustProxy acepta X-Forwarded-* (servicio detrás de un proxy propio).
	TrustProxy bool
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(d.TrustProxy),
		mw.WithSecurityHeaders(d.TrustProxy),
		mw.WithMetrics(),
		mw.WithLogging(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	h := d.Health
	if h == nil {
		h = health.New("", nil)
	}
	r.Get("/healthz", h.Live)
	r.Get("/readyz", h.Ready)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	c := authctrl.New(d.Engine, d.Now)
	r.Route("/v1/auth", func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithTenant(d.Tenants))

		r.Post("/register", c.Register)
		r.Post("/login", c.Login)

		r.Get("/verify-email", c.VerifyEmail)
		r.Post("/verify-email", c.VerifyEmail)
		r.Get("/verify-email/{token}", c.VerifyEmail)
		r.Post("/verify-email/resend", c.ResendVerification)

		r.Post("/password/forgot", c.ForgotPassword)
		r.Post("/password/reset", c.ResetPassword)

		r.Post("/sms/request", c.RequestSMS)
		r.Post("/sms/verify", c.VerifySMS)

		r.Post("/magic-link/request", c.RequestMagicLink)
		r.Get("/magic-link/verify", c.VerifyMagicLink)
		r.Post("/magic-link/verify", c.VerifyMagicLink)

		r.Get("/social", c.Providers)
		r.Get("/social/{provider}", c.StartSocial)
		r.Get("/social/{provider}/callback", c.SocialCallback)

		r.Post("/token/refresh", c.Refresh)
		r.Post("/token/validate", c.Validate)
		r.Post("/token/revoke", c.Revoke)
		r.Post("/logout", c.Logout)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(d.Engine))
			for _, p := range []string{"/me", "/profile"} {
				r.Get(p, c.Me)
				r.Put(p, c.UpdateMe)
				r.Delete(p, c.DeleteMe)
			}
			r.Post("/password/change", c.ChangePassword)
			r.Post("/phone/change", c.ChangePhone)
		})
	})
	return r
}
