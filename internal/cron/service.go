package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/distribridge/internal/reconcile"
	pkgerrors "github.com/angelmondragon/distribridge/pkg/errors"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/angelmondragon/distribridge/pkg/metrics"
)

// ServiceParams configure the job runner.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	// Locks is optional; without it every trigger runs.
	Locks   LockFactory
	Metrics *metrics.JobMetrics
}

// RunResult reports one triggered run.
type RunResult struct {
	Job string `json:"job"`
	reconcile.Result
	Skipped    bool  `json:"skipped"`
	DurationMS int64 `json:"duration_ms"`
}

// Service executes registered jobs on demand.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.JobMetrics
	now      func() time.Time
}

// NewService builds a job runner.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

// Jobs lists the names that can be triggered.
func (s *Service) Jobs() []string {
	return s.registry.Names()
}

// Run executes the named job once. When another run of the same job holds
// its lock, the run is reported as skipped with zero counts.
func (s *Service) Run(ctx context.Context, name string) (RunResult, error) {
	out := RunResult{Job: name}
	job, ok := s.registry.Lookup(name)
	if !ok {
		return out, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown job %q", name))
	}

	jobCtx := s.logg.WithField(s.logg.WithJob(ctx, name), "event", "cron.job")

	if s.locks != nil {
		lock, err := s.locks(name)
		if err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build job lock")
		}
		acquired, err := lock.Acquire(jobCtx)
		if err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire job lock")
		}
		if !acquired {
			s.logg.Info(jobCtx, "job already running; skipping")
			s.metrics.IncSkipped(name)
			out.Skipped = true
			return out, nil
		}
		defer func() {
			if relErr := lock.Release(context.WithoutCancel(jobCtx)); relErr != nil {
				s.logg.Error(jobCtx, "failed to release job lock", relErr)
			}
		}()
	}

	s.logg.Info(jobCtx, "job start")
	start := s.now()
	res, err := job.Run(jobCtx)
	duration := s.now().Sub(start)

	out.Result = res
	out.DurationMS = duration.Milliseconds()
	s.metrics.ObserveDuration(name, duration)
	s.metrics.AddItems(name, res.Updated, res.Errors)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": out.DurationMS,
		"updated":     res.Updated,
		"errors":      res.Errors,
	})
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(name)
		return out, err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(name)
	return out, nil
}

// RunAll runs every registered job in registration order. A failing job does
// not stop the ones after it.
func (s *Service) RunAll(ctx context.Context) ([]RunResult, error) {
	var (
		results []RunResult
		errs    error
	)
	for _, job := range s.registry.Jobs() {
		res, err := s.Run(ctx, job.Name())
		results = append(results, res)
		errs = multierr.Append(errs, err)
	}
	return results, errs
}
