// Package gateway is the boundary to the payment provider: intent creation over
// HTTP plus the signature primitives used to trust its callbacks.
package gateway

import (
	"context"
	"time"
)

// Adapter creates a provider-side payment intent for an order.
type Adapter interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*OrderRef, error)
}

type IntentRequest struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// OrderRef is the provider's reference for an intent, echoed back to the client.
type OrderRef struct {
	ID          string    `json:"id"`
	AmountMinor int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Receipt     string    `json:"receipt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
