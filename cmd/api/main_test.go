package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func TestBuildHandlerServesHealthAndMetrics(t *testing.T) {
	cfg := appconfig.Load()
	cfg.UseMemoryBackends = true
	cfg.RedisAddr = ""
	cfg.GoogleCalendarID = ""
	cfg.ServicesCatalogPath = filepath.Join("..", "..", "content", "pelvis", "services.yml")
	logger := logging.New("error")

	reg := prometheus.NewRegistry()
	services := bootstrap.BuildServices(context.Background(), cfg, bootstrap.NewAWSClients(aws.Config{Region: "us-east-1"}), metrics.NewReminderMetrics(reg), logger)
	t.Cleanup(services.Close)

	handler, limiter := buildHandler(cfg, services, reg, logger)
	assert.NotNil(t, limiter)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(`{"entry":[]}`)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "clinic_whatsapp_webhook_latency_seconds")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/appointments/x", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
