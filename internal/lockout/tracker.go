// Package lockout lleva el contador de intentos fallidos por usuario.
//
// No hay desbloqueo por tiempo: el contador vuelve a cero solo con un login
// exitoso, un reset de password o un unlock administrativo.
package lockout

import (
	"context"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

const DefaultThreshold = 5

// Tracker opera sobre los contadores atómicos del repositorio.
type Tracker struct {
	users     repository.UserRepository
	threshold int
	now       func() time.Time
	timeout   time.Duration
	// OnLock se invoca cuando un fallo lleva el contador al umbral.
	OnLock func(tenantID, userID string)
}

func NewTracker(users repository.UserRepository, defaultThreshold int, now func() time.Time, timeout time.Duration) *Tracker {
	if defaultThreshold <= 0 {
		defaultThreshold = DefaultThreshold
	}
	if now == nil {
		now = time.Now
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Tracker{users: users, threshold: defaultThreshold, now: now, timeout: timeout}
}

// Threshold: AllowedLoginAttempts del tenant si está configurado.
func (t *Tracker) Threshold(tn *repository.Tenant) int {
	if tn != nil && tn.Settings.AllowedLoginAttempts > 0 {
		return tn.Settings.AllowedLoginAttempts
	}
	return t.threshold
}

// IsLocked: failedAttempts >= threshold.
func (t *Tracker) IsLocked(tn *repository.Tenant, u *repository.User) bool {
	return u.Security.FailedAttempts >= t.Threshold(tn)
}

// RecordFailure incrementa el contador de forma atómica y retorna el nuevo valor.
func (t *Tracker) RecordFailure(ctx context.Context, tn *repository.Tenant, u *repository.User, ip string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	n, err := t.users.IncrementFailures(ctx, u.TenantID, u.ID, ip, t.now().UTC())
	if err != nil {
		return 0, autherr.Store(err, "record failure")
	}
	u.Security.FailedAttempts = n
	// el registro del bloqueo queda a cargo de quien llama (auditoría)
	if n == t.Threshold(tn) && t.OnLock != nil {
		t.OnLock(u.TenantID, u.ID)
	}
	return n, nil
}

// RecordSuccess resetea el contador y estampa fecha e IP del login.
func (t *Tracker) RecordSuccess(ctx context.Context, u *repository.User, ip string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	at := t.now().UTC()
	if err := t.users.RecordSuccess(ctx, u.TenantID, u.ID, ip, at); err != nil {
		return autherr.Store(err, "record success")
	}
	u.Security.FailedAttempts = 0
	u.Security.LastSuccess = at
	u.Security.LastIP = ip
	return nil
}

// Reset es el unlock privilegiado.
func (t *Tracker) Reset(ctx context.Context, tenantID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	err := t.users.ResetFailures(ctx, tenantID, userID)
	if repository.IsNotFound(err) {
		return autherr.New(autherr.UserNotFound, "user not found")
	}
	if err != nil {
		return autherr.Store(err, "reset failures")
	}
	return nil
}
