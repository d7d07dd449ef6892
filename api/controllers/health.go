package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/distribridge/api/responses"
	"github.com/angelmondragon/distribridge/pkg/config"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

const readyTimeout = 2 * time.Second

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Distribridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. A nil dependency counts as not wired and is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Distribridge-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := map[string]string{}
		var failed error
		for name, dep := range map[string]Pinger{"db": db, "redis": redis} {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable")
				continue
			}
			checks[name] = "ok"
		}
		if failed != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.As(failed).WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
