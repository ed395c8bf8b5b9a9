package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/tenantauth/internal/app"
	"github.com/dropDatabas3/tenantauth/internal/config"
	httpserver "github.com/dropDatabas3/tenantauth/internal/http"
	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

var version = "dev"

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "ruta al config YAML (opcional)")
		envFile    = flag.String("env-file", ".env", "archivo .env a cargar si existe")
	)
	flag.Parse()

	// .env es opcional; las variables ya definidas no se pisan.
	_ = godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal("config", logger.Err(err))
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "tenantauth", Version: version})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{Version: version})
	if err != nil {
		log.Fatal("bootstrap failed", logger.Err(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close", logger.Err(err))
		}
	}()

	log.Info("starting",
		logger.String("env", cfg.App.Env),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	err = httpserver.Run(ctx, httpserver.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, a.Handler)
	if err != nil {
		log.Error("server stopped", logger.Err(err))
		return
	}
	log.Info("bye")
}
