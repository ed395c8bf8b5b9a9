package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/tenantauth/internal/app"
	"github.com/dropDatabas3/tenantauth/internal/config"
	"github.com/dropDatabas3/tenantauth/internal/domain/repository"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
	"github.com/dropDatabas3/tenantauth/internal/store"
	"github.com/dropDatabas3/tenantauth/internal/tenant"
)

type cli struct {
	configPath string
	out        string
	timeout    time.Duration
}

// open arma el servicio sin HTTP contra el store configurado.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	cfg.Storage.AutoMigrate = false
	return app.New(ctx, cfg, app.Options{SkipHTTP: true})
}

func (c *cli) run(fn func(ctx context.Context, a *app.App) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (c *cli) print(v any, text string) {
	if c.out == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Println(text)
}

func main() {
	_ = godotenv.Load()
	logger.Init(logger.Config{Env: "dev", Level: envOr("LOG_LEVEL", "warn"), Service: "tenantauth-cli"})

	c := &cli{}
	root := &cobra.Command{
		Use:           "tenantauth",
		Short:         "CLI de administración de tenantauth (opera directo sobre el store)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("CONFIG_PATH"), "config YAML (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&c.out, "out", envOr("TENANTAUTH_OUT", "text"), "Formato de salida: json|text")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "timeout total del comando")

	root.AddCommand(migrateCmd(c), tenantCmd(c), schemaCmd(c), userCmd(c))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica migraciones pendientes (solo postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, a *app.App) error {
				m, ok := a.Conn.(store.Migratable)
				if !ok {
					return fmt.Errorf("driver %q no soporta migraciones", a.Conn.Name())
				}
				res, err := m.Migrate(ctx)
				if err != nil {
					return err
				}
				c.print(res, fmt.Sprintf("applied=%v skipped=%d", res.Applied, len(res.Skipped)))
				return nil
			})
		},
	}
}

func tenantCmd(c *cli) *cobra.Command {
	tc := &cobra.Command{Use: "tenant", Short: "Alta, baja y consulta de tenants"}

	var in tenant.CreateInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Crear un tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, a *app.App) error {
				t, err := a.Tenants.Create(ctx, in)
				if err != nil {
					return err
				}
				c.print(t, fmt.Sprintf("id=%s slug=%s", t.ID, t.Slug))
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "nombre visible")
	create.Flags().StringVar(&in.Slug, "slug", "", "slug único (a-z0-9-)")
	create.Flags().StringSliceVar(&in.Domains, "domain", nil, "dominio asociado (repetible)")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("slug")

	deactivate := &cobra.Command{
		Use:   "deactivate <tenant-id>",
		Short: "Desactivar un tenant (no se borra)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, a *app.App) error {
				if err := a.Tenants.Deactivate(ctx, args[0]); err != nil {
					return err
				}
				c.print(map[string]bool{"ok": true}, "ok")
				return nil
			})
		},
	}

	get := &cobra.Command{
		Use:   "get <slug>",
		Short: "Mostrar un tenant activo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, a *app.App) error {
				r, err := a.Tenants.Resolve(ctx, tenant.Identifier{Slug: args[0]})
				if err != nil {
					return err
				}
				t := *r.Tenant
				t.JWTSecret = ""
				c.print(t, fmt.Sprintf("id=%s slug=%s name=%q domains=%v", t.ID, t.Slug, t.Name, t.Domains))
				return nil
			})
		},
	}

	tc.AddCommand(create, deactivate, get)
	return tc
}

func schemaCmd(c *cli) *cobra.Command {
	sc := &cobra.Command{Use: "schema", Short: "Schema de validación de un tenant"}

	var file string
	put := &cobra.Command{
		Use:   "put <slug>",
		Short: "Guardar el schema desde un YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var s repository.ValidationSchema
			if err := yaml.Unmarshal(b, &s); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			return c.run(func(ctx context.Context, a *app.App) error {
				r, err := a.Tenants.Resolve(ctx, tenant.Identifier{Slug: args[0]})
				if err != nil {
					return err
				}
				s.TenantID = r.Tenant.ID
				if err := a.Schemas.Save(ctx, &s); err != nil {
					return err
				}
				c.print(map[string]any{"ok": true, "tenant_id": s.TenantID}, "ok")
				return nil
			})
		},
	}
	put.Flags().StringVarP(&file, "file", "f", "", "archivo YAML")
	_ = put.MarkFlagRequired("file")

	get := &cobra.Command{
		Use:   "get <slug>",
		Short: "Mostrar el schema vigente (YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, a *app.App) error {
				r, err := a.Tenants.Resolve(ctx, tenant.Identifier{Slug: args[0]})
				if err != nil {
					return err
				}
				if c.out == "json" {
					c.print(r.Schema, "")
					return nil
				}
				out, err := yaml.Marshal(r.Schema)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			})
		},
	}

	sc.AddCommand(put, get)
	return sc
}

func userCmd(c *cli) *cobra.Command {
	uc := &cobra.Command{Use: "user", Short: "Operaciones sobre usuarios"}
	unlock := &cobra.Command{
		Use:   "unlock <tenant-id> <user-id>",
		Short: "Resetear el contador de intentos fallidos",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, a *app.App) error {
				if err := a.Engine.Unlock(ctx, args[0], args[1]); err != nil {
					return err
				}
				c.print(map[string]bool{"ok": true}, "ok")
				return nil
			})
		},
	}
	uc.AddCommand(unlock)
	return uc
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
