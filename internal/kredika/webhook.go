package kredika

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
)

const signaturePrefix = "sha256="

var (
	errNoWebhookSecret = errors.New("webhook secret not configured")
	errNoSignature     = errors.New("missing signature")
	errBadSignature    = errors.New("signature mismatch")
)

// WebhookPayload is the envelope the provider posts to the webhook endpoint.
type WebhookPayload struct {
	Event         string          `json:"event"`
	TransactionID string          `json:"transactionId,omitempty"`
	ReservationID string          `json:"reservationId,omitempty"`
	OrderID       string          `json:"orderId,omitempty"`
	InstallmentID string          `json:"installmentId,omitempty"`
	Status        string          `json:"status,omitempty"`
	Amount        float64         `json:"amount,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// WebhookResult is always returned, valid or not.
type WebhookResult struct {
	Valid   bool
	Event   string
	Payload WebhookPayload
	Error   error
}

func (c *Client) webhookSecret() string {
	if c.cfg.WebhookSecret != "" {
		return c.cfg.WebhookSecret
	}
	return c.cfg.ClientSecret
}

// VerifyWebhookSignature checks the hex HMAC-SHA256 of the raw body against
// the signature header in constant time, then decodes the payload.
func (c *Client) VerifyWebhookSignature(raw []byte, signature string) WebhookResult {
	secret := c.webhookSecret()
	if secret == "" {
		return WebhookResult{Error: errNoWebhookSecret}
	}

	signature = strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix)
	if signature == "" {
		return WebhookResult{Error: errNoSignature}
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return WebhookResult{Error: errBadSignature}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return WebhookResult{Error: errBadSignature}
	}

	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return WebhookResult{Error: err}
	}

	return WebhookResult{Valid: true, Event: payload.Event, Payload: payload}
}

// SignWebhook produces the hex signature the provider would send for body.
func SignWebhook(raw []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}
