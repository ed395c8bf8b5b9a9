package repository

import (
	"context"
	"time"
)

// Tenant es un espacio aislado de usuarios con su propia configuración.
type Tenant struct {
	ID        string
	Name      string
	Slug      string
	Domains   []string
	JWTSecret string
	Features  Features
	Settings  Settings
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Features: Registration, Login y PasswordReset son siempre true;
// el resto es opcional por tenant.
type Features struct {
	Registration   bool `json:"registration" yaml:"registration"`
	Login          bool `json:"login" yaml:"login"`
	PasswordReset  bool `json:"passwordReset" yaml:"passwordReset"`
	UserMetadata   bool `json:"userMetadata" yaml:"userMetadata"`
	CustomBranding bool `json:"customBranding" yaml:"customBranding"`
	APIKeys        bool `json:"apiKeys" yaml:"apiKeys"`
	Webhooks       bool `json:"webhooks" yaml:"webhooks"`
}

// Normalize fuerza los flags core en true.
func (f Features) Normalize() Features {
	f.Registration = true
	f.Login = true
	f.PasswordReset = true
	return f
}

// Settings agrupa parámetros operativos del tenant.
type Settings struct {
	// AllowedLoginAttempts es el umbral de lockout. 0 = default del servicio.
	AllowedLoginAttempts int `json:"allowedLoginAttempts" yaml:"allowedLoginAttempts"`
	// LockoutDuration se persiste pero no hay desbloqueo por tiempo: el
	// contador solo se resetea con login exitoso, reset de password o admin.
	LockoutDuration time.Duration `json:"lockoutDuration" yaml:"lockoutDuration"`
	FromEmail       string        `json:"fromEmail,omitempty" yaml:"fromEmail,omitempty"`
	FromName        string        `json:"fromName,omitempty" yaml:"fromName,omitempty"`
}

// DefaultSettings son los valores de un tenant recién creado.
func DefaultSettings() Settings {
	return Settings{
		AllowedLoginAttempts: 5,
		LockoutDuration:      15 * time.Minute,
	}
}

// TenantRepository persiste tenants.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	// GetByDomain busca por host exacto (sin puerto, lowercase).
	GetByDomain(ctx context.Context, domain string) (*Tenant, error)
	// Create asigna ID/timestamps si faltan. ErrConflict si el slug existe.
	Create(ctx context.Context, t *Tenant) error
	Update(ctx context.Context, t *Tenant) error
	List(ctx context.Context) ([]Tenant, error)
}
