package auth

import (
	"context"

	"github.com/dropDatabas3/tenantauth/internal/audit"
	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/guard"
	"github.com/dropDatabas3/tenantauth/internal/jwt"
	"github.com/dropDatabas3/tenantauth/internal/metrics"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

func requireTenant(tc *tenant.Context) error {
	if tc == nil || tc.Tenant == nil {
		return autherr.New(autherr.TenantNotFound, "tenant not resolved")
	}
	return nil
}

// Refresh emite un par nuevo a partir de un refresh token del mismo tenant.
func (e *Engine) Refresh(ctx context.Context, tc *tenant.Context, refreshToken, ip string) (*jwt.Pair, error) {
	if err := requireTenant(tc); err != nil {
		return nil, err
	}
	if err := e.d.Guard.Check(ctx, guard.Request{TenantID: tc.Tenant.ID, Op: "refresh", IP: ip}); err != nil {
		return nil, err
	}
	pair, err := e.d.Tokens.Refresh(ctx, refreshToken, tc.Tenant)
	if err != nil {
		return nil, err
	}
	metrics.RecordTokens("refresh")
	return pair, nil
}

// Validate verifica un access token y retorna el usuario vigente.
func (e *Engine) Validate(ctx context.Context, tc *tenant.Context, accessToken string) (*repository.User, *jwt.Claims, error) {
	if err := requireTenant(tc); err != nil {
		return nil, nil, err
	}
	claims, err := e.d.Tokens.VerifyFor(accessToken, tc.Tenant, jwt.KindAccess)
	if err != nil {
		return nil, nil, err
	}
	u, err := e.d.Identities.GetByID(ctx, tc.Tenant.ID, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if err := statusErr(u); err != nil {
		return nil, nil, err
	}
	return u, claims, nil
}

// Logout revoca access y refresh. Nunca falla: los tokens son stateless.
func (e *Engine) Logout(ctx context.Context, tc *tenant.Context, accessToken, refreshToken string) {
	if requireTenant(tc) != nil {
		return
	}
	e.d.Tokens.Revoke(ctx, accessToken, tc.Tenant)
	e.d.Tokens.Revoke(ctx, refreshToken, tc.Tenant)
}

// DeleteAccount hace soft delete del usuario. Un usuario ya borrado → UserNotFound.
func (e *Engine) DeleteAccount(ctx context.Context, tc *tenant.Context, userID string) error {
	if err := requireTenant(tc); err != nil {
		return err
	}
	u, err := e.d.Identities.GetByID(ctx, tc.Tenant.ID, userID)
	if err != nil {
		return err
	}
	if u.Status == repository.StatusDeleted {
		return autherr.New(autherr.UserNotFound, "user not found")
	}
	if err := e.d.Identities.MarkDeleted(ctx, u); err != nil {
		return err
	}
	audit.Log(ctx, audit.UserDeleted, tc.Tenant.ID, u.ID)
	return nil
}

// Unlock resetea el contador de fallos (operación administrativa).
func (e *Engine) Unlock(ctx context.Context, tenantID, userID string) error {
	if err := e.d.Lockout.Reset(ctx, tenantID, userID); err != nil {
		return err
	}
	audit.Log(ctx, audit.UserUnlocked, tenantID, userID)
	return nil
}
