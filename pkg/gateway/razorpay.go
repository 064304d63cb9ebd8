package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"homechef/pkg/apperr"
)

const DefaultBaseURL = "https://api.razorpay.com"

type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Razorpay talks to the Orders API. It holds no state besides its config and client.
type Razorpay struct {
	cfg    Config
	client *http.Client
}

var _ Adapter = (*Razorpay)(nil)

func NewRazorpay(cfg Config, client *http.Client) *Razorpay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Razorpay{cfg: cfg, client: client}
}

type razorpayOrderReq struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type razorpayOrderRes struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type razorpayErrorRes struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (r *Razorpay) CreateIntent(ctx context.Context, req IntentRequest) (*OrderRef, error) {
	if req.AmountMinor <= 0 {
		return nil, apperr.ErrGatewayRejected.With("amount must be positive")
	}
	if len(req.Receipt) == 0 || len(req.Receipt) > MaxReceiptLen {
		return nil, apperr.ErrGatewayRejected.With("receipt must be 1-40 characters")
	}

	body, err := json.Marshal(razorpayOrderReq{
		Amount:   req.AmountMinor,
		Currency: strings.ToUpper(req.Currency),
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(r.cfg.BaseURL, "/")+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrGatewayUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", apperr.ErrGatewayUnavailable, err)
	}

	switch {
	case res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", apperr.ErrGatewayUnavailable, res.StatusCode)
	case res.StatusCode >= 400:
		var e razorpayErrorRes
		_ = json.Unmarshal(raw, &e)
		return nil, fmt.Errorf("%w: status %d %s %s", apperr.ErrGatewayRejected, res.StatusCode, e.Error.Code, e.Error.Description)
	}

	var out razorpayOrderRes
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", apperr.ErrGatewayUnavailable, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: response without order id", apperr.ErrGatewayUnavailable)
	}

	created := time.Now().UTC()
	if out.CreatedAt > 0 {
		created = time.Unix(out.CreatedAt, 0).UTC()
	}
	return &OrderRef{
		ID:          out.ID,
		AmountMinor: out.Amount,
		Currency:    out.Currency,
		Receipt:     out.Receipt,
		Status:      out.Status,
		CreatedAt:   created,
	}, nil
}

// IsTimeout reports whether err came from the adapter's own deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
