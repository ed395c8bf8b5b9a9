package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/tenantauth/internal/autherr"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/security/secretbox"
)

// Invalidator lo implementa el tenant registry para tirar su cache.
type Invalidator interface {
	Invalidate(tenantID string)
}

// ServiceDeps dependencias del servicio de schemas.
type ServiceDeps struct {
	Repo        repository.SchemaRepository
	Invalidator Invalidator
	// Box cifra client secrets sociales en reposo. Opcional.
	Box       *secretbox.Box
	OpTimeout time.Duration
}

// Service persiste schemas validados.
type Service struct {
	deps ServiceDeps
}

func NewService(d ServiceDeps) *Service {
	if d.OpTimeout == 0 {
		d.OpTimeout = 5 * time.Second
	}
	return &Service{deps: d}
}

// Get retorna el schema guardado o Default si no existe.
func (s *Service) Get(ctx context.Context, tenantID string) (*repository.ValidationSchema, error) {
	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()

	sc, err := s.deps.Repo.Get(ctx, tenantID)
	if repository.IsNotFound(err) {
		return Default(tenantID), nil
	}
	if err != nil {
		return nil, autherr.Store(err, "load schema")
	}
	return sc, nil
}

// Save valida (incluida detección de ciclos) y persiste. Un schema rechazado
// nunca se escribe.
func (s *Service) Save(ctx context.Context, sc *repository.ValidationSchema) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("schema"), logger.Op("Save"), logger.TenantID(sc.TenantID))

	if err := Check(sc); err != nil {
		log.Info("schema rejected", logger.Err(err))
		return err
	}
	if err := s.sealSecrets(sc); err != nil {
		return autherr.Wrap(err, autherr.Internal, "seal provider secrets")
	}

	ctx, cancel := context.WithTimeout(ctx, s.deps.OpTimeout)
	defer cancel()
	if err := s.deps.Repo.Upsert(ctx, sc); err != nil {
		return autherr.Store(err, "save schema")
	}
	if s.deps.Invalidator != nil {
		s.deps.Invalidator.Invalidate(sc.TenantID)
	}
	log.Info("schema saved", logger.Int("custom_fields", len(sc.CustomFields)))
	return nil
}

func (s *Service) sealSecrets(sc *repository.ValidationSchema) error {
	if s.deps.Box == nil {
		return nil
	}
	for _, m := range []*repository.SocialMethod{
		&sc.AuthMethods.SocialGoogle, &sc.AuthMethods.SocialFacebook, &sc.AuthMethods.SocialGithub,
	} {
		sealed, err := s.deps.Box.Seal(m.ClientSecret)
		if err != nil {
			return fmt.Errorf("seal: %w", err)
		}
		m.ClientSecret = sealed
	}
	return nil
}
