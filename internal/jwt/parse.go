package jwt

import (
	"errors"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
)

// Verify valida firma HS256 y expiración contra secret. Token vencido →
// TokenExpired; cualquier otro problema → InvalidCredentials.
func (s *Service) Verify(token, secret string) (*Claims, error) {
	if token == "" || secret == "" {
		return nil, autherr.New(autherr.InvalidCredentials, "invalid token")
	}
	var claims Claims
	parser := jwtv5.NewParser(
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithTimeFunc(s.now),
		jwtv5.WithExpirationRequired(),
	)
	_, err := parser.ParseWithClaims(token, &claims, func(*jwtv5.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, autherr.Wrap(err, autherr.TokenExpired, "token expired")
		}
		return nil, autherr.Wrap(err, autherr.InvalidCredentials, "invalid token")
	}
	if claims.UserID == "" {
		return nil, autherr.New(autherr.InvalidCredentials, "invalid token")
	}
	return &claims, nil
}

// VerifyFor valida además el tipo esperado y que el token sea del tenant.
func (s *Service) VerifyFor(token string, t *repository.Tenant, kind Kind) (*Claims, error) {
	c, err := s.Verify(token, t.JWTSecret)
	if err != nil {
		return nil, err
	}
	if c.Type != kind {
		return nil, autherr.New(autherr.InvalidCredentials, "unexpected token type")
	}
	if c.TenantID != t.ID {
		return nil, autherr.New(autherr.InvalidCredentials, "token issued for another tenant")
	}
	return c, nil
}
