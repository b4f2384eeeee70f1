package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/api/router"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic booking assistant API server",
		"env", cfg.Env,
		"stage", cfg.Stage,
		"port", cfg.Port,
		"memory_backends", cfg.UseMemoryBackends,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	reg := prometheus.NewRegistry()
	services := bootstrap.BuildServices(ctx, cfg, bootstrap.NewAWSClients(awsCfg), metrics.NewReminderMetrics(reg), logger)
	defer services.Close()

	handler, limiter := buildHandler(cfg, services, reg, logger)
	go evictLoop(ctx, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildHandler exposes reg on /metrics.
func buildHandler(cfg *appconfig.Config, services *bootstrap.Services, reg *prometheus.Registry, logger *logging.Logger) (http.Handler, *httpmiddleware.RateLimiter) {
	limiter := httpmiddleware.NewRateLimiter(5, 20)
	routerCfg := &router.Config{
		Logger:           logger,
		WhatsAppWebhook:  handlers.NewWhatsAppWebhookHandler(cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, services.Inbound, services.Metrics, logger),
		AdminAuthSecret:  cfg.AdminJWTSecret,
		AdminRateLimiter: limiter,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if services.Booking != nil {
		routerCfg.AdminAppointments = handlers.NewAdminAppointmentsHandler(services.Booking, services.Store, logger)
	}
	return router.New(routerCfg), limiter
}

func evictLoop(ctx context.Context, limiter *httpmiddleware.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Evict(now.Add(-10 * time.Minute))
		}
	}
}
