package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/distribridge/internal/reconcile"
)

// Job names accepted by the worker flag and the trigger endpoints.
const (
	JobSyncStockPrice  = "sync-stock-price"
	JobSyncOrderStatus = "sync-order-status"
)

type reconciler interface {
	Run(ctx context.Context) (reconcile.Result, error)
}

type reconcileJob struct {
	name string
	loop reconciler
}

func (j *reconcileJob) Name() string { return j.name }

func (j *reconcileJob) Run(ctx context.Context) (reconcile.Result, error) {
	return j.loop.Run(ctx)
}

// NewStockPriceJob wraps the stock/price loop as a named job.
func NewStockPriceJob(loop reconciler) (Job, error) {
	if loop == nil {
		return nil, fmt.Errorf("stock/price loop required")
	}
	return &reconcileJob{name: JobSyncStockPrice, loop: loop}, nil
}

// NewOrderStatusJob wraps the order-status loop as a named job.
func NewOrderStatusJob(loop reconciler) (Job, error) {
	if loop == nil {
		return nil, fmt.Errorf("order-status loop required")
	}
	return &reconcileJob{name: JobSyncOrderStatus, loop: loop}, nil
}
