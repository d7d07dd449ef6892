package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/distribridge/api"
	"github.com/angelmondragon/distribridge/api/routes"
	"github.com/angelmondragon/distribridge/internal/app"
	"github.com/angelmondragon/distribridge/pkg/config"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if port := os.Getenv("PORT"); port != "" {
		cfg.App.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap services", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(
		cfg,
		logg,
		components.DB,
		components.Redis,
		prometheus.DefaultGatherer,
		components.Webhooks,
		components.WebhookGuard,
		components.Jobs,
		components.Products,
		components.Orders,
		components.Shops,
	)
	server := api.NewServer(cfg, handler)

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": server.Addr,
	})
	logg.Info(ctx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		runErr = err
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	runErr = multierr.Combine(runErr, server.Shutdown(shutdownCtx), components.Close())
	if runErr != nil {
		logg.Error(shutdownCtx, "api server stopped with errors", runErr)
		os.Exit(1)
	}
	logg.Info(shutdownCtx, "api server stopped")
}
