// Package app assembles the services shared by the api and cron-worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/distribridge/internal/cron"
	"github.com/angelmondragon/distribridge/internal/forwarding"
	"github.com/angelmondragon/distribridge/internal/orders"
	"github.com/angelmondragon/distribridge/internal/products"
	"github.com/angelmondragon/distribridge/internal/reconcile"
	"github.com/angelmondragon/distribridge/internal/shops"
	"github.com/angelmondragon/distribridge/internal/storefront"
	"github.com/angelmondragon/distribridge/internal/supplier"
	storefrontwebhook "github.com/angelmondragon/distribridge/internal/webhooks/storefront"
	"github.com/angelmondragon/distribridge/pkg/config"
	"github.com/angelmondragon/distribridge/pkg/db"
	"github.com/angelmondragon/distribridge/pkg/logger"
	"github.com/angelmondragon/distribridge/pkg/metrics"
	"github.com/angelmondragon/distribridge/pkg/migrate"
	"github.com/angelmondragon/distribridge/pkg/redis"
)

const webhookGuardScope = "orders_create"

// App holds the wired services. Close releases the connections it opened.
type App struct {
	DB    *db.Client
	Redis *redis.Client

	Products     *products.Service
	Orders       *orders.Service
	Shops        *shops.Service
	Webhooks     *storefrontwebhook.Service
	WebhookGuard *storefrontwebhook.IdempotencyGuard
	Jobs         *cron.Service
}

// Build connects to the database and redis and wires every service. Metrics
// are registered on reg.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{}

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	a.DB = dbClient

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(fmt.Errorf("dev migrations: %w", err), a.Close())
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("bootstrap redis: %w", err), a.Close())
	}
	a.Redis = redisClient

	if err := a.wire(cfg, logg, reg); err != nil {
		return nil, multierr.Append(err, a.Close())
	}
	return a, nil
}

func (a *App) wire(cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer) error {
	statuses, err := cfg.Sync.PolledStatuses()
	if err != nil {
		return err
	}

	supplierClient, err := supplier.NewClient(supplier.ClientParams{Config: cfg.Supplier, Logger: logg})
	if err != nil {
		return fmt.Errorf("supplier client: %w", err)
	}
	storefrontClient, err := storefront.NewClient(storefront.ClientParams{Config: cfg.Storefront, Logger: logg})
	if err != nil {
		return fmt.Errorf("storefront client: %w", err)
	}

	conn := a.DB.DB()
	shopRepo := shops.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	sessions, err := shops.NewSessions(shops.SessionsParams{Repo: shopRepo, Locations: storefrontClient, Logger: logg})
	if err != nil {
		return fmt.Errorf("shop sessions: %w", err)
	}

	a.Products, err = products.NewService(products.ServiceParams{
		Repo:       productRepo,
		Catalog:    supplierClient,
		Storefront: storefrontClient,
		Sessions:   sessions,
		Logger:     logg,
	})
	if err != nil {
		return fmt.Errorf("product service: %w", err)
	}

	a.Orders, err = orders.NewService(orderRepo)
	if err != nil {
		return fmt.Errorf("order service: %w", err)
	}

	a.Shops, err = shops.NewService(shopRepo)
	if err != nil {
		return fmt.Errorf("shop service: %w", err)
	}

	engine, err := forwarding.NewEngine(forwarding.Params{
		Products:   productRepo,
		Ledger:     orderRepo,
		Supplier:   supplierClient,
		Storefront: storefrontClient,
		Shops:      sessions,
		Metrics:    metrics.NewForwardingMetrics(reg),
		Logger:     logg,
	})
	if err != nil {
		return fmt.Errorf("forwarding engine: %w", err)
	}

	a.Webhooks, err = storefrontwebhook.NewService(storefrontwebhook.ServiceParams{Engine: engine, Logger: logg})
	if err != nil {
		return fmt.Errorf("webhook service: %w", err)
	}
	a.WebhookGuard, err = storefrontwebhook.NewIdempotencyGuard(a.Redis, cfg.Storefront.WebhookGuardTTL, webhookGuardScope)
	if err != nil {
		return fmt.Errorf("webhook guard: %w", err)
	}

	stockPrice, err := reconcile.NewStockPrice(reconcile.StockPriceParams{
		Products:        productRepo,
		Shops:           sessions,
		Supplier:        supplierClient,
		Storefront:      storefrontClient,
		ShopConcurrency: cfg.Sync.ShopConcurrency,
		Logger:          logg,
	})
	if err != nil {
		return fmt.Errorf("stock/price loop: %w", err)
	}
	orderStatus, err := reconcile.NewOrderStatus(reconcile.OrderStatusParams{
		Ledger:          orderRepo,
		Sessions:        sessions,
		Supplier:        supplierClient,
		Storefront:      storefrontClient,
		Statuses:        statuses,
		BatchLimit:      cfg.Sync.StatusBatchLimit,
		NotifyCustomer:  cfg.Storefront.NotifyCustomer,
		ShopConcurrency: cfg.Sync.ShopConcurrency,
		Logger:          logg,
	})
	if err != nil {
		return fmt.Errorf("order-status loop: %w", err)
	}

	stockJob, err := cron.NewStockPriceJob(stockPrice)
	if err != nil {
		return err
	}
	statusJob, err := cron.NewOrderStatusJob(orderStatus)
	if err != nil {
		return err
	}

	var locks cron.LockFactory
	if cfg.Sync.LockEnabled {
		locks = cron.RedisLocks(a.Redis, cfg.Sync.LockTTL)
	}
	a.Jobs, err = cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(stockJob, statusJob),
		Locks:    locks,
		Metrics:  metrics.NewJobMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("job service: %w", err)
	}
	return nil
}

// Close shuts down redis and the database, combining their errors.
func (a *App) Close() error {
	var err error
	if a.Redis != nil {
		err = multierr.Append(err, a.Redis.Close())
	}
	if a.DB != nil {
		err = multierr.Append(err, a.DB.Close())
	}
	return err
}
