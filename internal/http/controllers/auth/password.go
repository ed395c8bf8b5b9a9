package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	engine "github.com/dropDatabas3/tenantauth/internal/auth"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/tenantauth/internal/http/errors"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
)

// Register maneja POST /v1/auth/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := c.engine.Register(r.Context(), mw.GetTenant(r.Context()), engine.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		DisplayName: req.DisplayName,
		Profile:     req.Profile,
		IP:          mw.ClientIP(r),
	})
	if err != nil {
		c.fail(w, r, "Register", err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		TokenResponse:        dto.NewTokenResponse(res.Tokens, res.User, c.now()),
		VerificationRequired: res.VerificationRequired,
		DebugToken:           res.DebugToken,
	})
}

// Login maneja POST /v1/auth/login. Usuario inexistente y password incorrecto
// se responden igual.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := c.engine.Login(r.Context(), mw.GetTenant(r.Context()), engine.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       mw.ClientIP(r),
	})
	if err != nil {
		c.fail(w, r, "Login", httperrors.MaskUnknownUser(err))
		return
	}
	c.session(w, http.StatusOK, s)
}

// VerifyEmail maneja GET /v1/auth/verify-email[/{token}] y POST con body.
func (c *Controller) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenParam(w, r, chi.URLParam(r, "token"))
	if !ok {
		return
	}
	u, err := c.engine.VerifyEmail(r.Context(), mw.GetTenant(r.Context()), token)
	if err != nil {
		c.fail(w, r, "VerifyEmail", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// ResendVerification maneja POST /v1/auth/verify-email/resend.
func (c *Controller) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := c.engine.ResendVerification(r.Context(), mw.GetTenant(r.Context()), req.Email, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "ResendVerification", err)
		return
	}
	writeJSON(w, http.StatusAccepted, dispatch(d))
}

// ForgotPassword maneja POST /v1/auth/password/forgot. Siempre 202.
func (c *Controller) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := c.engine.RequestPasswordReset(r.Context(), mw.GetTenant(r.Context()), req.Email, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "ForgotPassword", err)
		return
	}
	writeJSON(w, http.StatusAccepted, dispatch(d))
}

// ResetPassword maneja POST /v1/auth/password/reset.
func (c *Controller) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}
	if _, err := c.engine.ResetPassword(r.Context(), mw.GetTenant(r.Context()), req.Token, req.NewPassword); err != nil {
		c.fail(w, r, "ResetPassword", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true, Message: "password updated"})
}

// ChangePassword maneja POST /v1/auth/password/change (requiere bearer).
func (c *Controller) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	u := mw.GetUser(ctx)
	if err := c.engine.ChangePassword(ctx, mw.GetTenant(ctx), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		c.fail(w, r, "ChangePassword", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true, Message: "password updated"})
}
