package gateway

import (
	"encoding/json"
	"fmt"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// WebhookEvent is the subset of the provider's webhook envelope the reconciler reads.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity WebhookPayment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type WebhookPayment struct {
	ID               string         `json:"id"`
	OrderID          string         `json:"order_id"`
	Amount           int64          `json:"amount"`
	Currency         string         `json:"currency"`
	Status           string         `json:"status"`
	ErrorCode        string         `json:"error_code"`
	ErrorDescription string         `json:"error_description"`
	ErrorReason      string         `json:"error_reason"`
	Notes            map[string]any `json:"notes"`
}

func (p WebhookPayment) Note(key string) string {
	v, ok := p.Notes[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &ev, nil
}
