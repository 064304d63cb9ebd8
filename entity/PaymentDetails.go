package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// PaymentDetails is the gateway-facing record kept on the order as one JSON blob.
// It is never queried on its own.
type PaymentDetails struct {
	GatewayOrderID    string `json:"gatewayOrderId,omitempty"`
	Receipt           string `json:"receipt,omitempty"`
	IntentAmountMinor int64  `json:"intentAmountMinor,omitempty"`
	Currency          string `json:"currency,omitempty"`

	GatewayPaymentID string     `json:"gatewayPaymentId,omitempty"`
	Signature        string     `json:"signature,omitempty"`
	VerifiedVia      string     `json:"verifiedVia,omitempty"`
	VerifiedAt       *time.Time `json:"verifiedAt,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`

	FailureReason      string          `json:"failureReason,omitempty"`
	AttemptedPaymentID string          `json:"attemptedPaymentId,omitempty"`
	ProviderError      json.RawMessage `json:"providerError,omitempty"`
	FailedAt           *time.Time      `json:"failedAt,omitempty"`
}

func (d PaymentDetails) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *PaymentDetails) Scan(src any) error {
	return scanJSON(src, d)
}
