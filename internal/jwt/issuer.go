// Package jwt emite y valida los tokens de sesión firmados con el secreto
// HS256 de cada tenant.
package jwt

import (
	"context"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims del token: {userId, type, tid, iat, exp, jti}.
type Claims struct {
	UserID   string `json:"userId"`
	Type     Kind   `json:"type"`
	TenantID string `json:"tid"`
	jwtv5.RegisteredClaims
}

// Pair es el resultado de un login exitoso.
type Pair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	Type             string    `json:"type"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// UserLookup es el subconjunto del repo de usuarios que necesita Refresh.
type UserLookup interface {
	GetByID(ctx context.Context, tenantID, userID string) (*repository.User, error)
}

// Config del servicio.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now reloj inyectable; default time.Now.
	Now func() time.Time
	// OpTimeout acota la lectura del usuario en Refresh (default 5s).
	OpTimeout time.Duration
}

// Service firma y valida tokens por tenant.
type Service struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	opTimeout  time.Duration
	users      UserLookup
}

func NewService(cfg Config, users UserLookup) *Service {
	s := &Service{
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
		opTimeout:  cfg.OpTimeout,
		users:      users,
	}
	if s.accessTTL == 0 {
		s.accessTTL = time.Hour
	}
	if s.refreshTTL == 0 {
		s.refreshTTL = 7 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.opTimeout == 0 {
		s.opTimeout = 5 * time.Second
	}
	return s
}

var errNoSecret = errors.New("jwt: tenant has no signing secret")

func (s *Service) sign(kind Kind, userID string, t *repository.Tenant, ttl time.Duration) (string, time.Time, error) {
	if t == nil || t.JWTSecret == "" {
		return "", time.Time{}, errNoSecret
	}
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:   userID,
		Type:     kind,
		TenantID: t.ID,
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(exp),
		},
	}
	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte(t.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Issue emite un par access (1h) + refresh (7d) para el usuario.
func (s *Service) Issue(u *repository.User, t *repository.Tenant) (*Pair, error) {
	access, accessExp, err := s.sign(KindAccess, u.ID, t, s.accessTTL)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.Internal, "sign access token")
	}
	refresh, refreshExp, err := s.sign(KindRefresh, u.ID, t, s.refreshTTL)
	if err != nil {
		return nil, autherr.Wrap(err, autherr.Internal, "sign refresh token")
	}
	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		Type:             "Bearer",
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh valida un refresh token y emite un par nuevo. El usuario debe
// seguir existiendo y estar activo.
func (s *Service) Refresh(ctx context.Context, refreshToken string, t *repository.Tenant) (*Pair, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("jwt"), logger.Op("Refresh"), logger.TenantID(t.ID))

	claims, err := s.VerifyFor(refreshToken, t, KindRefresh)
	if err != nil {
		return nil, err
	}

	lctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	u, err := s.users.GetByID(lctx, t.ID, claims.UserID)
	cancel()
	if repository.IsNotFound(err) {
		return nil, autherr.New(autherr.UserNotFound, "user not found")
	}
	if err != nil {
		return nil, autherr.Store(err, "load user")
	}
	switch u.Status {
	case repository.StatusDeleted:
		return nil, autherr.New(autherr.UserNotFound, "user not found")
	case repository.StatusSuspended:
		return nil, autherr.New(autherr.AccountInactive, "account is not active")
	}

	pair, err := s.Issue(u, t)
	if err != nil {
		return nil, err
	}
	log.Debug("token refreshed", logger.UserID(u.ID))
	return pair, nil
}

// Revoke no invalida tokens stateless: registra el intento y nunca falla.
func (s *Service) Revoke(ctx context.Context, token string, t *repository.Tenant) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("jwt"), logger.Op("Revoke"))
	if t != nil {
		log = log.With(logger.TenantID(t.ID))
	}
	if token == "" || t == nil {
		return
	}
	if c, err := s.Verify(token, t.JWTSecret); err == nil {
		log.Debug("token revoked", logger.UserID(c.UserID), logger.String("type", string(c.Type)))
		return
	}
	log.Debug("revoke of invalid token ignored")
}
