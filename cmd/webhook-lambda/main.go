package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wolfman30/clinic-booking-assistant/cmd/mainconfig"
	"github.com/wolfman30/clinic-booking-assistant/internal/app/bootstrap"
	"github.com/wolfman30/clinic-booking-assistant/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// webhook is the part of the WhatsApp handler the Lambda needs.
type webhook interface {
	Challenge(query url.Values) (int, string)
	Process(ctx context.Context, body []byte, signature string) int
}

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	services := bootstrap.BuildServices(ctx, cfg, bootstrap.NewAWSClients(awsCfg), nil, logger)
	wh := handlers.NewWhatsAppWebhookHandler(cfg.WhatsAppVerifyToken, cfg.WhatsAppAppSecret, services.Inbound, nil, logger)

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, wh, evt), nil
	})
}

func handle(ctx context.Context, wh webhook, evt events.APIGatewayV2HTTPRequest) events.APIGatewayV2HTTPResponse {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "/health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}
	}

	switch method {
	case http.MethodGet:
		query, err := url.ParseQuery(evt.RawQueryString)
		if err != nil {
			query = url.Values{}
			for k, v := range evt.QueryStringParameters {
				query.Set(k, v)
			}
		}
		status, body := wh.Challenge(query)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: status,
			Body:       body,
			Headers:    map[string]string{"content-type": "text/plain"},
		}
	case http.MethodPost:
		body, err := decodeBody(evt)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: `{"ok":true}`}
		}
		status := wh.Process(ctx, body, headerValue(evt.Headers, whatsapp.SignatureHeader))
		if status != http.StatusOK {
			return events.APIGatewayV2HTTPResponse{StatusCode: status, Body: "invalid signature"}
		}
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusOK,
			Body:       `{"ok":true}`,
			Headers:    map[string]string{"content-type": "application/json"},
		}
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
