package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/florelink/florelink-backend/api/controllers"
	ordercontrollers "github.com/florelink/florelink-backend/api/controllers/orders"
	paymentcontrollers "github.com/florelink/florelink-backend/api/controllers/payments"
	"github.com/florelink/florelink-backend/api/middleware"
	orderssvc "github.com/florelink/florelink-backend/internal/orders"
	paymentssvc "github.com/florelink/florelink-backend/internal/payments"
	"github.com/florelink/florelink-backend/pkg/config"
	"github.com/florelink/florelink-backend/pkg/enums"
	"github.com/florelink/florelink-backend/pkg/logger"
	pkgredis "github.com/florelink/florelink-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      *pkgredis.Client
	Orders     orderssvc.Service
	Payments   paymentssvc.Service
	Registry   *prometheus.Registry
	Idempotent pkgredis.IdempotencyStore
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	pingers := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// Webhook deliveries carry no bearer token.
	r.Post("/api/v1/payments/payu/notify", paymentcontrollers.HostedNotify(deps.Payments, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotent, logg))

		// Checkout is a buyer action; admins manage orders but do not place them.
		buyerOnly := middleware.RequireRole(logg, enums.UserRoleWholesaler, enums.UserRoleFlorist)

		r.Route("/orders", func(r chi.Router) {
			r.With(buyerOnly).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderID}", ordercontrollers.Get(deps.Orders, logg))
			r.Patch("/{orderID}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-payment-intent", paymentcontrollers.CreateIntent(deps.Payments, logg))
			r.Post("/confirm-payment", paymentcontrollers.Confirm(deps.Payments, logg))
			r.Post("/payu/create-order", paymentcontrollers.StartHostedCheckout(deps.Payments, logg))
		})
	})

	return r
}
