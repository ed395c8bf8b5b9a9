package repository

import (
	"context"
	"time"
)

type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
	StatusDeleted   UserStatus = "deleted"
)

// User es la cuenta dentro de un tenant. Email y Phone vacíos equivalen a
// ausentes: la unicidad (tenant, email) y (tenant, phone) solo aplica a
// valores presentes.
type User struct {
	ID           string
	TenantID     string
	Email        string
	Phone        string
	DisplayName  string
	PasswordHash string
	// NewPassword es un plaintext pendiente de hashear. identity.Store.Save lo
	// hashea, lo escribe condicionado al PasswordHash leído y lo limpia; nunca
	// se persiste.
	NewPassword string `json:"-"`
	Profile     map[string]any
	Roles       []string
	Status      UserStatus
	Methods     UserMethods
	Security    SecurityState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Los tokens y códigos se guardan hasheados (SHA-256 base64url); nunca el valor en claro.
type EmailPasswordState struct {
	Verified           bool      `json:"verified"`
	VerificationHash   string    `json:"-"`
	VerificationExpiry time.Time `json:"-"`
	ResetHash          string    `json:"-"`
	ResetExpiry        time.Time `json:"-"`
}

type PhoneSMSState struct {
	Verified   bool      `json:"verified"`
	CodeHash   string    `json:"-"`
	CodeExpiry time.Time `json:"-"`
}

type MagicLinkState struct {
	TokenHash string    `json:"-"`
	Expiry    time.Time `json:"-"`
}

// SocialIdentity es el vínculo con un proveedor externo.
type SocialIdentity struct {
	ExternalID string         `json:"id"`
	Email      string         `json:"email,omitempty"`
	Verified   bool           `json:"verified"`
	Data       map[string]any `json:"data,omitempty"`
	LastLogin  time.Time      `json:"lastLogin"`
}

type UserMethods struct {
	EmailPassword EmailPasswordState
	PhoneSMS      PhoneSMSState
	MagicLink     MagicLinkState
	Social        map[string]SocialIdentity // key: provider
}

type SecurityState struct {
	FailedAttempts int
	LastFailure    time.Time
	LastSuccess    time.Time
	LastIP         string
}

// Clone retorna una copia profunda (maps/slices incluidos).
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Profile = cloneMap(u.Profile)
	c.Roles = append([]string(nil), u.Roles...)
	if u.Methods.Social != nil {
		c.Methods.Social = make(map[string]SocialIdentity, len(u.Methods.Social))
		for k, v := range u.Methods.Social {
			v.Data = cloneMap(v.Data)
			c.Methods.Social[k] = v
		}
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// UserRepository persiste usuarios. Todas las mutaciones de contadores y
// tokens de un solo uso son atómicas a nivel store: dos llamadas concurrentes
// nunca pierden un incremento ni consumen dos veces el mismo token.
type UserRepository interface {
	// GetByID incluye usuarios borrados (soft delete).
	GetByID(ctx context.Context, tenantID, userID string) (*User, error)
	// Los Find* excluyen usuarios con status deleted.
	FindByEmail(ctx context.Context, tenantID, email string) (*User, error)
	FindByPhone(ctx context.Context, tenantID, phone string) (*User, error)
	FindBySocial(ctx context.Context, tenantID, provider, externalID string) (*User, error)
	DisplayNameExists(ctx context.Context, tenantID, name string) (bool, error)

	// Insert asigna ID y timestamps. ErrConflict si email/phone ya existen en el tenant.
	Insert(ctx context.Context, u *User) error
	// Update escribe solo perfil, display name y roles. Credenciales, canales
	// y flags de verificación tienen operaciones propias para no pisar
	// escrituras concurrentes con un snapshot viejo.
	Update(ctx context.Context, u *User) error
	// SetPasswordHash reemplaza el hash solo si el actual sigue siendo
	// expectedHash. ErrConflict si cambió en el medio.
	SetPasswordHash(ctx context.Context, tenantID, userID, expectedHash, newHash string) error
	// ChangePhone asigna un teléfono nuevo sin verificar junto con su código
	// SMS. ErrConflict si el teléfono ya pertenece a otro usuario del tenant.
	ChangePhone(ctx context.Context, tenantID, userID, phone, codeHash string, expiry time.Time) error
	SetStatus(ctx context.Context, tenantID, userID string, status UserStatus) error

	// IncrementFailures suma 1 de forma atómica y retorna el contador resultante.
	IncrementFailures(ctx context.Context, tenantID, userID, ip string, at time.Time) (int, error)
	// RecordSuccess resetea el contador y registra último login.
	RecordSuccess(ctx context.Context, tenantID, userID, ip string, at time.Time) error
	ResetFailures(ctx context.Context, tenantID, userID string) error

	SetMagicLink(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error
	// ConsumeMagicLink limpia el token si coincide y no venció. ErrExpired si venció
	// (no lo limpia), ErrNotFound si no existe o ya fue usado.
	ConsumeMagicLink(ctx context.Context, tenantID, tokenHash string, now time.Time) (*User, error)

	SetSMSCode(ctx context.Context, tenantID, userID, codeHash string, expiry time.Time) error
	// ConsumeSMSCode además marca el teléfono como verificado.
	ConsumeSMSCode(ctx context.Context, tenantID, phone, codeHash string, now time.Time) (*User, error)

	SetVerificationToken(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error
	// ConsumeVerificationToken además marca el email como verificado.
	ConsumeVerificationToken(ctx context.Context, tenantID, tokenHash string, now time.Time) (*User, error)

	SetResetToken(ctx context.Context, tenantID, userID, tokenHash string, expiry time.Time) error
	// ConsumeResetToken reemplaza el hash de password y resetea el contador de fallos.
	ConsumeResetToken(ctx context.Context, tenantID, tokenHash string, now time.Time, newPasswordHash string) (*User, error)

	LinkSocial(ctx context.Context, tenantID, userID, provider string, ident SocialIdentity) error
}
