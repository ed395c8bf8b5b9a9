// Package pg implementa el adapter PostgreSQL sobre pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/store"
	migrations "github.com/dropDatabas3/tenantauth/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// nullIfEmpty mapea "" a NULL (los índices únicos parciales dependen de esto).
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const (
	codeUniqueViolation = "23505"
)

// mapErr traduce errores de pgx a los sentinels de repository.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return fmt.Errorf("pg: %s: %w", op, repository.ErrConflict)
	}
	if isTransient(err) {
		return fmt.Errorf("pg: %s: %w: %v", op, repository.ErrTransient, err)
	}
	return fmt.Errorf("pg: %s: %w", op, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	poolCfg.MaxConns = 10
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = 2
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, mapErr("create pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		// Ping fallido en arranque es típicamente la DB levantando: reintentable.
		return nil, fmt.Errorf("pg: ping: %w: %v", repository.ErrTransient, err)
	}
	return &Connection{pool: pool}, nil
}

// Connection es una conexión activa a PostgreSQL.
type Connection struct {
	pool *pgxpool.Pool
}

func (c *Connection) Name() string                   { return "postgres" }
func (c *Connection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
func (c *Connection) Close() error {
	c.pool.Close()
	return nil
}

// Pool expone el pool para el collector de métricas.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

func (c *Connection) Tenants() repository.TenantRepository { return &tenantRepo{pool: c.pool} }
func (c *Connection) Schemas() repository.SchemaRepository { return &schemaRepo{pool: c.pool} }
func (c *Connection) Users() repository.UserRepository     { return &userRepo{pool: c.pool} }

// Migrate aplica las migraciones embebidas.
func (c *Connection) Migrate(ctx context.Context) (*store.MigrationResult, error) {
	return store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, &executor{pool: c.pool})
}

type executor struct{ pool *pgxpool.Pool }

func (e *executor) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := e.pool.Exec(ctx, sql, args...)
	return err
}

func (e *executor) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := e.pool.Query(ctx, `SELECT version FROM _migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}
