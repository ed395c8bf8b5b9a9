// Package identity es la capa de servicio sobre el repositorio de usuarios:
// búsqueda por identificador, alta con display name único y guardado con
// hasheo de password solo cuando cambió.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/security/password"
	tokens "github.com/dropDatabas3/tenantauth/internal/security/token"
)

const displayNameAttempts = 10

// Lookup identifica a un usuario por uno de sus canales. Se usa el primero
// presente en orden Email, Phone, Social.
type Lookup struct {
	Email      string
	Phone      string
	Provider   string
	ExternalID string
}

// NewIdentity datos parciales para crear un usuario.
type NewIdentity struct {
	Email         string
	Phone         string
	Password      string
	DisplayName   string
	Profile       map[string]any
	Roles         []string
	EmailVerified bool
	PhoneVerified bool
	// Provider + Social vinculan una identidad externa desde el alta.
	Provider string
	Social   *repository.SocialIdentity
}

// StoreDeps dependencias del store.
type StoreDeps struct {
	Users             repository.UserRepository
	Hasher            password.Hasher
	Random            *tokens.Generator
	DisplayNamePrefix string
	OpTimeout         time.Duration
}

type Store struct {
	deps StoreDeps
}

func NewStore(d StoreDeps) *Store {
	if d.Hasher == nil {
		d.Hasher = password.Bcrypt{}
	}
	if d.Random == nil {
		d.Random = tokens.NewGenerator(nil)
	}
	if d.DisplayNamePrefix == "" {
		d.DisplayNamePrefix = "user"
	}
	if d.OpTimeout == 0 {
		d.OpTimeout = 5 * time.Second
	}
	return &Store{deps: d}
}

// NormalizeEmail trim + lowercase.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// NormalizePhone deja solo dígitos y un '+' inicial.
func NormalizePhone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, c := range s {
		if (c >= '0' && c <= '9') || (c == '+' && i == 0) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// FindByIdentifier busca dentro del tenant. Usuarios borrados no aparecen.
// Sin resultado → UserNotFound.
func (s *Store) FindByIdentifier(ctx context.Context, tenantID string, l Lookup) (*repository.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	var (
		u   *repository.User
		err error
	)
	switch {
	case l.Email != "":
		u, err = s.deps.Users.FindByEmail(ctx, tenantID, NormalizeEmail(l.Email))
	case l.Phone != "":
		u, err = s.deps.Users.FindByPhone(ctx, tenantID, NormalizePhone(l.Phone))
	case l.Provider != "" && l.ExternalID != "":
		u, err = s.deps.Users.FindBySocial(ctx, tenantID, l.Provider, l.ExternalID)
	default:
		return nil, autherr.New(autherr.ValidationFailed, "identifier required")
	}
	if repository.IsNotFound(err) {
		return nil, autherr.New(autherr.UserNotFound, "user not found")
	}
	if err != nil {
		return nil, autherr.Store(err, "find user")
	}
	return u, nil
}

// Create hashea el password (si hay), genera display name y persiste.
// Email o phone duplicados → DuplicateIdentity.
func (s *Store) Create(ctx context.Context, tenantID string, in NewIdentity) (*repository.User, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("identity"), logger.Op("Create"), logger.TenantID(tenantID))

	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	u := &repository.User{
		TenantID: tenantID,
		Email:    NormalizeEmail(in.Email),
		Phone:    NormalizePhone(in.Phone),
		Profile:  in.Profile,
		Roles:    in.Roles,
		Status:   repository.StatusActive,
	}
	if len(u.Roles) == 0 {
		u.Roles = []string{"user"}
	}
	u.Methods.EmailPassword.Verified = in.EmailVerified
	u.Methods.PhoneSMS.Verified = in.PhoneVerified
	if in.Social != nil && in.Provider != "" {
		u.Methods.Social = map[string]repository.SocialIdentity{in.Provider: *in.Social}
	}

	if in.Password != "" {
		h, err := password.HashContext(ctx, s.deps.Hasher, in.Password)
		if err != nil {
			return nil, autherr.Store(err, "hash password")
		}
		u.PasswordHash = h
	}

	name, err := s.displayName(ctx, tenantID, strings.TrimSpace(in.DisplayName))
	if err != nil {
		return nil, err
	}
	u.DisplayName = name

	if err := s.deps.Users.Insert(ctx, u); err != nil {
		if repository.IsConflict(err) {
			return nil, autherr.New(autherr.DuplicateIdentity, "email or phone already registered")
		}
		return nil, autherr.Store(err, "insert user")
	}
	log.Info("user created", logger.UserID(u.ID))
	return u, nil
}

func (s *Store) displayName(ctx context.Context, tenantID, requested string) (string, error) {
	if requested != "" {
		taken, err := s.deps.Users.DisplayNameExists(ctx, tenantID, requested)
		if err != nil {
			return "", autherr.Store(err, "check display name")
		}
		if taken {
			return "", autherr.Validation("display name already taken", []string{"display_name_taken"})
		}
		return requested, nil
	}
	for i := 0; i < displayNameAttempts; i++ {
		suffix, err := s.deps.Random.Digits(4)
		if err != nil {
			return "", autherr.Wrap(err, autherr.Internal, "generate display name")
		}
		candidate := s.deps.DisplayNamePrefix + suffix
		taken, err := s.deps.Users.DisplayNameExists(ctx, tenantID, candidate)
		if err != nil {
			return "", autherr.Store(err, "check display name")
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", autherr.New(autherr.DisplayNameGenerationFailed, "could not generate a unique display name")
}

// Save persiste perfil, display name y roles. Si NewPassword tiene valor lo
// hashea y lo escribe solo si el hash guardado sigue siendo el que se leyó;
// guardar dos veces sin NewPassword deja el mismo hash. Email, teléfono y
// verificaciones no se tocan acá.
func (s *Store) Save(ctx context.Context, u *repository.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	if u.NewPassword != "" {
		h, err := password.HashContext(ctx, s.deps.Hasher, u.NewPassword)
		if err != nil {
			return autherr.Store(err, "hash password")
		}
		err = s.deps.Users.SetPasswordHash(ctx, u.TenantID, u.ID, u.PasswordHash, h)
		switch {
		case repository.IsConflict(err):
			return autherr.New(autherr.InvalidCredentials, "password changed concurrently")
		case repository.IsNotFound(err):
			return autherr.New(autherr.UserNotFound, "user not found")
		case err != nil:
			return autherr.Store(err, "set password")
		}
		u.PasswordHash = h
		u.NewPassword = ""
	}
	if err := s.deps.Users.Update(ctx, u); err != nil {
		if repository.IsNotFound(err) {
			return autherr.New(autherr.UserNotFound, "user not found")
		}
		return autherr.Store(err, "save user")
	}
	return nil
}

// UpdateProfile cambia display name (vacío = sin cambio) y reemplaza el perfil
// (nil = sin cambio). El display name sigue siendo único en el tenant.
func (s *Store) UpdateProfile(ctx context.Context, u *repository.User, displayName string, profile map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	displayName = strings.TrimSpace(displayName)
	if displayName != "" && displayName != u.DisplayName {
		taken, err := s.deps.Users.DisplayNameExists(ctx, u.TenantID, displayName)
		if err != nil {
			return autherr.Store(err, "check display name")
		}
		if taken {
			return autherr.Validation("display name already taken", []string{"display_name_taken"})
		}
		u.DisplayName = displayName
	}
	if profile != nil {
		u.Profile = profile
	}
	if err := s.deps.Users.Update(ctx, u); err != nil {
		if repository.IsNotFound(err) {
			return autherr.New(autherr.UserNotFound, "user not found")
		}
		return autherr.Store(err, "update profile")
	}
	return nil
}

// ChangePhone asigna un teléfono nuevo (sin verificar) y su código SMS en una
// sola escritura. Teléfono de otro usuario → DuplicateIdentity.
func (s *Store) ChangePhone(ctx context.Context, u *repository.User, phone, codeHash string, expiry time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	phone = NormalizePhone(phone)
	err := s.deps.Users.ChangePhone(ctx, u.TenantID, u.ID, phone, codeHash, expiry)
	switch {
	case repository.IsConflict(err):
		return autherr.New(autherr.DuplicateIdentity, "phone already registered")
	case repository.IsNotFound(err):
		return autherr.New(autherr.UserNotFound, "user not found")
	case err != nil:
		return autherr.Store(err, "change phone")
	}
	u.Phone = phone
	u.Methods.PhoneSMS = repository.PhoneSMSState{CodeHash: codeHash, CodeExpiry: expiry}
	return nil
}

// MarkDeleted es soft delete: el registro sigue accesible por id.
func (s *Store) MarkDeleted(ctx context.Context, u *repository.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	err := s.deps.Users.SetStatus(ctx, u.TenantID, u.ID, repository.StatusDeleted)
	if repository.IsNotFound(err) {
		return autherr.New(autherr.UserNotFound, "user not found")
	}
	if err != nil {
		return autherr.Store(err, "delete user")
	}
	u.Status = repository.StatusDeleted
	logger.From(ctx).Info("user deleted", logger.Layer("service"), logger.Component("identity"),
		logger.TenantID(u.TenantID), logger.UserID(u.ID))
	return nil
}

// GetByID incluye usuarios borrados.
func (s *Store) GetByID(ctx context.Context, tenantID, userID string) (*repository.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()
	u, err := s.deps.Users.GetByID(ctx, tenantID, userID)
	if repository.IsNotFound(err) {
		return nil, autherr.New(autherr.UserNotFound, "user not found")
	}
	if err != nil {
		return nil, autherr.Store(err, "load user")
	}
	return u, nil
}

// Hasher usado para passwords nuevos.
func (s *Store) Hasher() password.Hasher { return s.deps.Hasher }
