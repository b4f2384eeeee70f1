package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger            *logging.Logger
	WhatsAppWebhook   *handlers.WhatsAppWebhookHandler
	AdminAppointments *handlers.AdminAppointmentsHandler
	AdminAuthSecret   string
	AdminRateLimiter  *httpmiddleware.RateLimiter
	MetricsHandler    http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", handlers.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WhatsAppWebhook != nil {
			public.Route("/webhooks/whatsapp", func(wh chi.Router) {
				wh.Get("/", cfg.WhatsAppWebhook.Verify)
				wh.Post("/", cfg.WhatsAppWebhook.Receive)
			})
		}
	})

	if cfg.AdminAuthSecret != "" && cfg.AdminAppointments != nil {
		r.Route("/admin", func(admin chi.Router) {
			if cfg.AdminRateLimiter != nil {
				admin.Use(httpmiddleware.RateLimit(cfg.AdminRateLimiter))
			}
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Route("/appointments", func(appts chi.Router) {
				appts.Get("/", cfg.AdminAppointments.ListForPatient)
				appts.Post("/", cfg.AdminAppointments.Create)
				appts.Get("/{id}", cfg.AdminAppointments.Get)
				appts.Patch("/{id}", cfg.AdminAppointments.Update)
				appts.Delete("/{id}", cfg.AdminAppointments.Cancel)
			})
		})
	}

	return r
}
