// Package memory implementa un adapter en memoria para tests y modo dev.
// Todas las operaciones toman un único mutex, lo que las hace atómicas
// respecto de otras llamadas concurrentes.
package memory

import (
	"context"
	"sync"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.Connection, error) {
	return New(), nil
}

// Connection es un backend en memoria completo.
type Connection struct {
	mu      sync.Mutex
	tenants map[string]*repository.Tenant
	schemas map[string]*repository.ValidationSchema
	users   map[string]*repository.User // key: userID
}

// New crea un store vacío. Usado directamente por tests.
func New() *Connection {
	return &Connection{
		tenants: make(map[string]*repository.Tenant),
		schemas: make(map[string]*repository.ValidationSchema),
		users:   make(map[string]*repository.User),
	}
}

func (c *Connection) Name() string                         { return "memory" }
func (c *Connection) Ping(context.Context) error           { return nil }
func (c *Connection) Close() error                         { return nil }
func (c *Connection) Tenants() repository.TenantRepository { return &tenantRepo{c} }
func (c *Connection) Schemas() repository.SchemaRepository { return &schemaRepo{c} }
func (c *Connection) Users() repository.UserRepository     { return &userRepo{c} }
