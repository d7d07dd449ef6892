package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/distribridge/api/responses"
	"github.com/angelmondragon/distribridge/internal/cron"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

// JobRunner runs sync jobs by name.
type JobRunner interface {
	Jobs() []string
	Run(ctx context.Context, name string) (cron.RunResult, error)
}

// ListJobs returns the names accepted by TriggerJob.
func ListJobs(runner JobRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job runner unavailable"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"jobs": runner.Jobs()})
	}
}

// TriggerJob runs the job named in the path synchronously and returns its counts.
func TriggerJob(runner JobRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job runner unavailable"))
			return
		}
		res, err := runner.Run(r.Context(), chi.URLParam(r, "job"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
