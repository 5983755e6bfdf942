package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frutaseca/cart-backend/api/controllers"
	cartcontrollers "github.com/frutaseca/cart-backend/api/controllers/cart"
	"github.com/frutaseca/cart-backend/api/middleware"
	"github.com/frutaseca/cart-backend/pkg/config"
	"github.com/frutaseca/cart-backend/pkg/logger"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions cartcontrollers.SessionService
	Checkout cartcontrollers.CheckoutService
	Products controllers.ProductLister
	Pingers  map[string]controllers.Pinger
	Registry *prometheus.Registry
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductsList(deps.Products, logg))

		r.Route("/cart/sessions", func(r chi.Router) {
			r.Post("/", cartcontrollers.SessionCreate(deps.Sessions, logg))

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", cartcontrollers.SessionGet(deps.Sessions, logg))
				r.Delete("/", cartcontrollers.SessionDelete(deps.Sessions, logg))

				r.Post("/items", cartcontrollers.ItemAdd(deps.Sessions, logg))
				r.Patch("/items/{productID}", cartcontrollers.ItemUpdate(deps.Sessions, logg))
				r.Delete("/items/{productID}", cartcontrollers.ItemRemove(deps.Sessions, logg))

				r.Patch("/prefs", cartcontrollers.PrefsUpdate(deps.Sessions, logg))
				r.Post("/interactions", cartcontrollers.Interaction(deps.Sessions, logg))
				r.Post("/signals/toggle", cartcontrollers.SignalToggle(deps.Sessions, logg))
				r.Post("/signals/hover", cartcontrollers.SignalHover(deps.Sessions, logg))

				r.Post("/checkout", cartcontrollers.Checkout(deps.Sessions, deps.Checkout, logg))
				r.Get("/events", cartcontrollers.Events(deps.Sessions, logg))
			})
		})
	})

	return r
}
