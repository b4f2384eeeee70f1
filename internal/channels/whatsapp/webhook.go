package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Hub-Signature-256"

// VerifyChallenge checks a GET subscription request and returns the challenge to echo.
func VerifyChallenge(query url.Values, verifyToken string) (string, bool) {
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	if mode != "subscribe" || verifyToken == "" || !hmac.Equal([]byte(token), []byte(verifyToken)) {
		return "", false
	}
	return query.Get("hub.challenge"), true
}

// VerifySignature verifies the X-Hub-Signature-256 header ("sha256=<hex>").
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) || len(signature) == len(prefix) {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature[len(prefix):])))
}

// Sign returns the header value Meta would send for body.
func Sign(appSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook decodes a webhook body.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookEvent{}, fmt.Errorf("whatsapp: decode webhook: %w", err)
	}
	return event, nil
}

// Extract returns the inbound text messages and the delivery statuses of an event.
// Non-text messages are dropped.
func Extract(event WebhookEvent) ([]InboundMessage, []Status) {
	var messages []InboundMessage
	var statuses []Status
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			statuses = append(statuses, change.Value.Statuses...)
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				if m.Type != "text" || m.Text == nil {
					continue
				}
				messages = append(messages, InboundMessage{
					MessageID:   m.ID,
					From:        NormalizeE164(m.From),
					ProfileName: names[m.From],
					Text:        m.Text.Body,
					Timestamp:   parseUnix(m.Timestamp),
				})
			}
		}
	}
	return messages, statuses
}

// NormalizeE164 adds the leading '+' Meta omits.
func NormalizeE164(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "+") {
		return v
	}
	return "+" + v
}

func parseUnix(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
