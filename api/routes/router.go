package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mhizterpaul/cartlink-backend/api/controllers"
	"github.com/mhizterpaul/cartlink-backend/api/middleware"
	"github.com/mhizterpaul/cartlink-backend/internal/links"
	"github.com/mhizterpaul/cartlink-backend/internal/orders"
	"github.com/mhizterpaul/cartlink-backend/internal/payments"
	"github.com/mhizterpaul/cartlink-backend/pkg/config"
	"github.com/mhizterpaul/cartlink-backend/pkg/db"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
	"github.com/mhizterpaul/cartlink-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersSvc orders.Service,
	paymentsSvc payments.Service,
	linkTracker links.Tracker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// Gateway callbacks live outside /api/v1: the path is shared with the
	// gateway's dashboard configuration.
	r.Post("/payments/callback", controllers.GatewayCallback(paymentsSvc, cfg.Gateway, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/customers/orders", controllers.CustomerCreateOrder(ordersSvc, logg))

		r.Route("/merchants/{merchantID}/orders", func(r chi.Router) {
			r.Get("/", controllers.MerchantListOrders(ordersSvc, logg))
			r.Get("/links/{linkID}", controllers.MerchantLinkOrders(ordersSvc, logg))
			r.Put("/{orderID}/status", controllers.MerchantUpdateOrderStatus(ordersSvc, logg))
			r.Patch("/{orderID}/tracking", controllers.MerchantUpdateTracking(ordersSvc, logg))
			r.Patch("/{orderID}/delivered", controllers.MerchantMarkDelivered(ordersSvc, logg))
		})

		r.Post("/payments/initiate", controllers.InitiatePayment(paymentsSvc, logg))

		r.Post("/links/{linkID}/click", controllers.RecordLinkClick(linkTracker, logg))
	})

	return r
}
