package cron

import (
	"context"

	"github.com/angelmondragon/distribridge/internal/reconcile"
)

// Job is a reconciliation pass that can be triggered by name.
type Job interface {
	Name() string
	Run(ctx context.Context) (reconcile.Result, error)
}

// Registry tracks registered jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry. A job whose name is already taken replaces the earlier one.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	for i, existing := range r.jobs {
		if existing.Name() == job.Name() {
			r.jobs[i] = job
			return
		}
	}
	r.jobs = append(r.jobs, job)
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, bool) {
	for _, job := range r.jobs {
		if job.Name() == name {
			return job, true
		}
	}
	return nil, false
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists the registered job names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
