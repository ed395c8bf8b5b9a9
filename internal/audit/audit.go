// Package audit registra eventos de seguridad (lockouts, cambios de password,
// bajas) en un logger dedicado, separable del log operativo por el campo
// "audit".
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Eventos emitidos por el motor y la administración de tenants.
const (
	UserLocked        = "user.locked"
	UserUnlocked      = "user.unlocked"
	UserDeleted       = "user.deleted"
	PasswordChanged   = "user.password_changed"
	PasswordReset     = "user.password_reset"
	EmailVerified     = "user.email_verified"
	SocialLinked      = "user.social_linked"
	TenantCreated     = "tenant.created"
	TenantDeactivated = "tenant.deactivated"
)

// Log escribe un evento de auditoría. tenantID y userID pueden ir vacíos.
func Log(ctx context.Context, event, tenantID, userID string, fields ...zap.Field) {
	base := []zap.Field{zap.Bool("audit", true), zap.String("event", event)}
	if tenantID != "" {
		base = append(base, logger.TenantID(tenantID))
	}
	if userID != "" {
		base = append(base, logger.UserID(userID))
	}
	logger.From(ctx).Info("audit", append(base, fields...)...)
}
