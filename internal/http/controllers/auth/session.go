package auth

import (
	"net/http"

	engine "github.com/dropDatabas3/tenantauth/internal/auth"
	dto "github.com/dropDatabas3/tenantauth/internal/http/dto/auth"
	mw "github.com/dropDatabas3/tenantauth/internal/http/middlewares"
)

// Refresh maneja POST /v1/auth/token/refresh.
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	pair, err := c.engine.Refresh(r.Context(), mw.GetTenant(r.Context()), req.RefreshToken, mw.ClientIP(r))
	if err != nil {
		c.fail(w, r, "Refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewTokenResponse(pair, nil, c.now()))
}

// Validate maneja POST /v1/auth/token/validate. El token puede venir en el
// body o como bearer.
func (c *Controller) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		req.Token = mw.BearerToken(r)
	}
	u, claims, err := c.engine.Validate(r.Context(), mw.GetTenant(r.Context()), req.Token)
	if err != nil {
		c.fail(w, r, "Validate", err)
		return
	}
	out := dto.ValidateResponse{Valid: true, UserID: u.ID, TenantID: claims.TenantID, User: dto.NewUserResponse(u)}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, out)
}

// Revoke maneja POST /v1/auth/token/revoke. Siempre 200: revocar un token
// inválido no es error.
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	if tc := mw.GetTenant(ctx); tc != nil {
		c.engine.Logout(ctx, tc, req.Token, "")
	}
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true})
}

// Logout maneja POST /v1/auth/logout.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if !decode(w, r, &req) {
		return
	}
	if req.AccessToken == "" {
		req.AccessToken = mw.BearerToken(r)
	}
	c.engine.Logout(r.Context(), mw.GetTenant(r.Context()), req.AccessToken, req.RefreshToken)
	writeJSON(w, http.StatusOK, dto.StatusResponse{Success: true})
}

// Me maneja GET /v1/auth/me (requiere bearer).
func (c *Controller) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.NewUserResponse(mw.GetUser(r.Context())))
}

// UpdateMe maneja PUT /v1/auth/me (requiere bearer).
func (c *Controller) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	u, err := c.engine.UpdateProfile(ctx, mw.GetTenant(ctx), mw.GetUser(ctx).ID, engine.ProfileInput{
		DisplayName: req.DisplayName,
		Profile:     req.Profile,
	})
	if err != nil {
		c.fail(w, r, "UpdateMe", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// DeleteMe maneja DELETE /v1/auth/me (requiere bearer). Soft delete.
func (c *Controller) DeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.engine.DeleteAccount(ctx, mw.GetTenant(ctx), mw.GetUser(ctx).ID); err != nil {
		c.fail(w, r, "DeleteMe", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
