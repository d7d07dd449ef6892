package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/distribridge/internal/app"
	"github.com/angelmondragon/distribridge/internal/cron"
	"github.com/angelmondragon/distribridge/pkg/config"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

const allJobs = "all"

// cron-worker runs one sync job (or all of them) and exits. Scheduling is left
// to the platform scheduler; the per-job redis lock turns overlapping runs into skips.
func main() {
	job := flag.String("job", "", fmt.Sprintf("job to run: %s|%s|%s", cron.JobSyncStockPrice, cron.JobSyncOrderStatus, allJobs))
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	if *job == "" {
		fmt.Fprintln(os.Stderr, "missing -job")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	components, err := app.Build(ctx, cfg, logg, prometheus.NewRegistry())
	if err != nil {
		logg.Error(ctx, "failed to bootstrap services", err)
		os.Exit(1)
	}

	var (
		results []cron.RunResult
		runErr  error
	)
	if *job == allJobs {
		results, runErr = components.Jobs.RunAll(ctx)
	} else {
		var res cron.RunResult
		res, runErr = components.Jobs.Run(ctx, *job)
		results = append(results, res)
	}

	if err := json.NewEncoder(os.Stdout).Encode(results); err != nil {
		runErr = multierr.Append(runErr, err)
	}
	if err := multierr.Append(runErr, components.Close()); err != nil {
		logg.Error(ctx, "cron worker finished with errors", err)
		os.Exit(1)
	}
}
