// Package store provee el registry de adapters de persistencia.
//
// Cada adapter se registra en su init() y se selecciona por nombre desde la
// config (storage.driver). Los paquetes de adapters se enlazan importando
// internal/store/adapters/dal.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Adapter crea conexiones a un backend concreto.
type Adapter interface {
	Name() string
	Connect(ctx context.Context, cfg AdapterConfig) (Connection, error)
}

// Connection expone los repositorios de una conexión activa.
type Connection interface {
	Name() string
	Ping(ctx context.Context) error
	Close() error

	Tenants() repository.TenantRepository
	Schemas() repository.SchemaRepository
	Users() repository.UserRepository
}

// Migratable lo implementan conexiones con esquema versionado (postgres).
type Migratable interface {
	Migrate(ctx context.Context) (*MigrationResult, error)
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres" | "memory"
	Name string
	DSN  string

	MaxConns int32
	MinConns int32

	// ConnectAttempts reintentos con backoff exponencial al conectar. Default 5.
	ConnectAttempts uint
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter. Llamar en init().
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("store: adapter %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(adapters))
	for n := range adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ErrUnknownAdapter se retorna cuando cfg.Name no está registrado.
var ErrUnknownAdapter = errors.New("store: adapter not registered")

// Open conecta usando el adapter de cfg.Name. Las fallas transitorias
// (ErrTransient) se reintentan con backoff exponencial; el resto es permanente.
func Open(ctx context.Context, cfg AdapterConfig) (Connection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, cfg.Name)
	}

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 5
	}
	log := logger.From(ctx).With(logger.Component("store"), logger.String("adapter", cfg.Name))

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	eb.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, func() (Connection, error) {
		conn, err := a.Connect(ctx, cfg)
		if err == nil {
			return conn, nil
		}
		if !repository.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("store connect failed, retrying", logger.Err(err), zap.Duration("next", next))
		}),
	)
}
