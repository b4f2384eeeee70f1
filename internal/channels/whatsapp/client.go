package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v20.0"
	defaultHTTPTimeout  = 10 * time.Second
	maxTextLength       = 4000
)

// Client sends messages via the WhatsApp Cloud API.
type Client struct {
	creds        CredentialsProvider
	graphAPIBase string
	httpClient   *http.Client
}

// NewClient creates a Graph API client.
func NewClient(creds CredentialsProvider) *Client {
	if creds == nil {
		panic("whatsapp: credentials provider cannot be nil")
	}
	return &Client{
		creds:        creds,
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	if base != "" {
		c.graphAPIBase = strings.TrimRight(base, "/")
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// SendText sends a free-form text message. Bodies over 4000 characters are truncated.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient(to),
		Type:             "text",
		Text:             &SendText{Body: truncate(body, maxTextLength)},
	})
}

// SendTemplate sends an approved template with named body parameters.
func (c *Client) SendTemplate(ctx context.Context, to, name, lang string, params []Param) (*SendResponse, error) {
	tpl := &Template{Name: name, Language: TemplateLanguage{Code: lang}}
	if len(params) > 0 {
		component := TemplateComponent{Type: "body"}
		for _, p := range params {
			component.Parameters = append(component.Parameters, TemplateParameter{
				Type:          "text",
				Text:          p.Value,
				ParameterName: p.Name,
			})
		}
		tpl.Components = []TemplateComponent{component}
	}
	return c.send(ctx, SendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient(to),
		Type:             "template",
		Template:         tpl,
	})
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	if req.To == "" {
		return nil, fmt.Errorf("whatsapp: recipient required")
	}
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load credentials: %w", err)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.graphAPIBase, creds.PhoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: read response: %w", err)
	}

	var sendResp SendResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &sendResp); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("whatsapp: unmarshal response: %w", err)
		}
	}
	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("whatsapp: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &sendResp, fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return &sendResp, nil
}

func recipient(to string) string {
	return strings.TrimPrefix(strings.TrimSpace(to), "+")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
