package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/chatcart-backend/api/controllers"
	"github.com/angelmondragon/chatcart-backend/api/middleware"
	"github.com/angelmondragon/chatcart-backend/internal/admin"
	"github.com/angelmondragon/chatcart-backend/pkg/config"
	"github.com/angelmondragon/chatcart-backend/pkg/logger"
	"github.com/angelmondragon/chatcart-backend/pkg/metrics"
)

// AdminStoreService joins the order views and cart repairs the dashboard
// routes need.
type AdminStoreService interface {
	controllers.OrdersService
	controllers.CartService
}

type adminServices struct {
	Auth   *admin.Service
	Orders AdminStoreService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	engine controllers.ChatEngine,
	confirmer controllers.PaymentConfirmer,
	authService *admin.Service,
	ordersService AdminStoreService,
	chatStats *metrics.ChatMetrics,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Admin.DashboardOrigin),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	r.Route("/webhook", func(r chi.Router) {
		r.Get("/", controllers.VerifyChatWebhook(cfg.WhatsApp))
		r.Post("/", controllers.ChatWebhook(engine, logg))
	})
	if cfg.WhatsApp.UseMock {
		r.Post("/mock-incoming", controllers.SimulateInbound(engine, logg))
	}

	r.Route("/payments", func(r chi.Router) {
		r.Post("/webhook", controllers.PaymentWebhook(cfg.Razorpay, confirmer, chatStats, logg))
		if cfg.Razorpay.UseMock {
			r.Post("/mock-success", controllers.MockPaymentSuccess(confirmer, logg))
		}
	})

	r.Get("/invoice/{filename}", controllers.InvoiceDownload(cfg.Invoice, logg))

	mountAdmin(r, adminServices{Auth: authService, Orders: ordersService}, logg)

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}

func mountAdmin(r chi.Router, svcs adminServices, logg *logger.Logger) {
	if svcs.Auth == nil {
		if logg != nil {
			logg.Warn(context.Background(), "admin credentials not configured, admin routes disabled")
		}
		return
	}

	r.Route("/admin", func(r chi.Router) {
		r.Post("/auth/login", controllers.AdminLogin(svcs.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(svcs.Auth, logg))

			r.Get("/auth/me", controllers.AdminMe(logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(svcs.Orders, logg))
				r.Get("/{phone}", controllers.AdminGetOrder(svcs.Orders, logg))
				r.Post("/{phone}/resend-invoice", controllers.AdminResendInvoice(svcs.Orders, logg))
			})

			r.Get("/carts", controllers.AdminListOrders(svcs.Orders, logg))
			r.Route("/cart/{phone}", func(r chi.Router) {
				r.Get("/", controllers.AdminGetOrder(svcs.Orders, logg))
				r.Post("/clear", controllers.AdminClearCart(svcs.Orders, logg))
				r.Post("/remove", controllers.AdminRemoveItem(svcs.Orders, logg))
				r.Post("/qty", controllers.AdminUpdateQty(svcs.Orders, logg))
			})
		})
	})
}
