package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/distribridge/api/controllers"
	webhookcontrollers "github.com/angelmondragon/distribridge/api/controllers/webhooks"
	"github.com/angelmondragon/distribridge/api/middleware"
	"github.com/angelmondragon/distribridge/pkg/config"
	"github.com/angelmondragon/distribridge/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	gatherer prometheus.Gatherer,
	webhookService webhookcontrollers.StorefrontWebhookService,
	webhookGuard webhookcontrollers.StorefrontWebhookGuard,
	jobRunner controllers.JobRunner,
	productService controllers.ProductService,
	orderService controllers.OrderLister,
	shopService controllers.ShopService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/storefront", webhookcontrollers.StorefrontWebhook(webhookService, cfg.Storefront.WebhookSecret, webhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Token(cfg.App.JobsToken, logg))

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", controllers.ListJobs(jobRunner, logg))
			r.Post("/{job}", controllers.TriggerJob(jobRunner, logg))
		})

		r.Get("/shops", controllers.ListShops(shopService, logg))
		r.Route("/shops/{shop}", func(r chi.Router) {
			r.Put("/", controllers.InstallShop(shopService, logg))
			r.Delete("/", controllers.UninstallShop(shopService, logg))
			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(productService, logg))
				r.Post("/", controllers.ImportProduct(productService, logg))
				r.Put("/{productId}/contract", controllers.SetProductContract(productService, logg))
				r.Post("/{productId}/dismiss-alert", controllers.DismissProductAlert(productService, logg))
				r.Delete("/{productId}", controllers.RemoveProduct(productService, logg))
			})
			r.Get("/orders", controllers.ListOrders(orderService, logg))
		})
	})

	return r
}
