package auth

import (
	"context"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/guard"
	"github.com/dropDatabas3/tenantauth/internal/identity"
	"github.com/dropDatabas3/tenantauth/internal/notify"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/schema"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

// ─── Perfil ───

// ProfileInput: DisplayName vacío no lo cambia. Las claves de Profile se
// mezclan con el perfil guardado; un valor nil borra la clave.
type ProfileInput struct {
	DisplayName string
	Profile     map[string]any
}

// UpdateProfile valida el perfil resultante contra los campos custom del
// tenant (todas las violaciones juntas) y guarda solo los campos definidos.
func (e *Engine) UpdateProfile(ctx context.Context, tc *tenant.Context, userID string, in ProfileInput) (*repository.User, error) {
	if err := requireTenant(tc); err != nil {
		return nil, err
	}
	if err := e.d.Guard.Check(ctx, guard.Request{TenantID: tc.Tenant.ID, Op: "profile_update", Key: userID}); err != nil {
		return nil, err
	}
	u, err := e.d.Identities.GetByID(ctx, tc.Tenant.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}

	var profile map[string]any
	if in.Profile != nil {
		merged := make(map[string]any, len(u.Profile)+len(in.Profile))
		for k, v := range u.Profile {
			merged[k] = v
		}
		for k, v := range in.Profile {
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
		if errs := schema.ValidateFields(merged, tc.Schema.CustomFields); len(errs) > 0 {
			return nil, autherr.Validation("validation failed", schema.Strings(errs))
		}
		profile = schema.FilterProfile(merged, tc.Schema.CustomFields)
	}
	if err := e.d.Identities.UpdateProfile(ctx, u, in.DisplayName, profile); err != nil {
		return nil, err
	}
	logger.From(ctx).Info("profile updated", logger.Layer("service"), logger.Component("auth"),
		logger.Op("UpdateProfile"), logger.TenantID(tc.Tenant.ID), logger.UserID(u.ID))
	return u, nil
}

// ChangePhone reemplaza el teléfono de un usuario autenticado. El número
// queda sin verificar hasta que se consuma el código enviado por SMS.
func (e *Engine) ChangePhone(ctx context.Context, tc *tenant.Context, userID, phone, ip string) (_ *Dispatch, err error) {
	const method = repository.MethodPhoneSMS
	defer func() {
		if err != nil {
			observe(method, err)
		}
	}()

	phone = identity.NormalizePhone(phone)
	if err := e.precheck(ctx, tc, method, "phone_change", phone, ip); err != nil {
		return nil, err
	}
	if !validPhone(phone) {
		return nil, autherr.Validation("invalid phone number", []string{"invalid_phone"})
	}
	u, err := e.d.Identities.GetByID(ctx, tc.Tenant.ID, userID)
	if err != nil {
		return nil, err
	}
	if err := statusErr(u); err != nil {
		return nil, err
	}

	code, ttl, err := e.newSMSCode(tc)
	if err != nil {
		return nil, err
	}
	expires := e.now().Add(ttl)
	if err := e.d.Identities.ChangePhone(ctx, u, phone, tokens.SHA256Base64URL(code), expires); err != nil {
		return nil, err
	}

	sent := e.send(ctx, tc, notify.Message{
		Channel:     notify.ChannelSMS,
		To:          phone,
		TemplateKey: notify.TemplateSMSCode,
		Params:      map[string]string{"Code": code, "TTL": ttl.String()},
	})
	e.log(ctx, tc, "ChangePhone", method).Info("phone changed", logger.UserID(u.ID), logger.Bool("sent", sent))
	return &Dispatch{Sent: sent, ExpiresAt: expires, DebugToken: e.debug(code)}, nil
}

// ─── Proveedores sociales ───

// ProviderInfo describe un proveedor habilitado. Nunca incluye el secret.
type ProviderInfo struct {
	Name     string
	ClientID string
	Scopes   []string
}

var socialProviders = []string{"google", "facebook", "github"}

// SocialProviders lista los proveedores sociales habilitados del tenant.
func (e *Engine) SocialProviders(tc *tenant.Context) ([]ProviderInfo, error) {
	if err := requireTenant(tc); err != nil {
		return nil, err
	}
	out := make([]ProviderInfo, 0, len(socialProviders))
	for _, name := range socialProviders {
		cfg, ok := schema.SocialConfig(tc.Schema, name)
		if !ok || !cfg.Enabled {
			continue
		}
		out = append(out, ProviderInfo{Name: name, ClientID: cfg.ClientID, Scopes: cfg.Scopes})
	}
	return out, nil
}
