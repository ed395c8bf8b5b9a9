package auth

import (
	"net/http"

	engine "github.com/dropDatabas3/tenantauth/internal/auth"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
)

// RequestSMS maneja POST /v1/auth/sms/request.
func (c *Controller) RequestSMS(w http.ResponseWriter, r *http.Request) {
	var req dto.SMSRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := c.engine.RequestSMSCode(r.Context(), mw.GetTenant(r.Context()), req.Phone, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "RequestSMS", err)
		return
	}
	writeJSON(w, http.StatusAccepted, dispatch(d))
}

// VerifySMS maneja POST /v1/auth/sms/verify.
func (c *Controller) VerifySMS(w http.ResponseWriter, r *http.Request) {
	var req dto.SMSVerifyRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := c.engine.VerifySMSCode(r.Context(), mw.GetTenant(r.Context()), req.Phone, req.Code, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "VerifySMS", httperrors.MaskUnknownUser(err))
		return
	}
	c.session(w, http.StatusOK, s)
}

// ChangePhone maneja POST /v1/auth/phone/change (requiere bearer). El
// teléfono nuevo se verifica después con /sms/verify.
func (c *Controller) ChangePhone(w http.ResponseWriter, r *http.Request) {
	var req dto.SMSRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	d, err := c.engine.ChangePhone(ctx, mw.GetTenant(ctx), mw.GetUser(ctx).ID, req.Phone, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "ChangePhone", err)
		return
	}
	writeJSON(w, http.StatusAccepted, dispatch(d))
}

// RequestMagicLink maneja POST /v1/auth/magic-link/request.
func (c *Controller) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req dto.MagicLinkRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := c.engine.RequestMagicLink(r.Context(), mw.GetTenant(r.Context()), engine.MagicLinkInput{
		Email: req.Email,
		Phone: req.Phone,
		IP:    mw.ClientIP(r),
	})
	if err != nil {
		c.fail(w, r, "RequestMagicLink", err)
		return
	}
	writeJSON(w, http.StatusAccepted, dispatch(d))
}

// VerifyMagicLink maneja GET (link del email) y POST /v1/auth/magic-link/verify.
func (c *Controller) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenParam(w, r, "")
	if !ok {
		return
	}
	s, err := c.engine.VerifyMagicLink(r.Context(), mw.GetTenant(r.Context()), token, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "VerifyMagicLink", err)
		return
	}
	c.session(w, http.StatusOK, s)
}
