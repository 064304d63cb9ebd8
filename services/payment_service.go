package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"homechef/configs"
	"homechef/entity"
	"homechef/pkg/apperr"
	"homechef/pkg/gateway"
	"homechef/pkg/logging"
	"homechef/pkg/metrics"
	"homechef/repository"
)

type IntentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	OrderID  uint            `json:"orderId" binding:"required"`
}

// PaymentView is the payment side of an order as shown to its parties.
// The signature never leaves the server.
type PaymentView struct {
	OrderID          uint                 `json:"orderId"`
	OrderNumber      string               `json:"orderNumber"`
	Status           entity.OrderStatus   `json:"status"`
	PaymentMethod    entity.PaymentMethod `json:"paymentMethod"`
	PaymentStatus    entity.PaymentStatus `json:"paymentStatus"`
	TotalAmount      decimal.Decimal      `json:"totalAmount"`
	Currency         string               `json:"currency,omitempty"`
	GatewayOrderID   string               `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string               `json:"gatewayPaymentId,omitempty"`
	VerifiedVia      string               `json:"verifiedVia,omitempty"`
	PaidAt           *time.Time           `json:"paidAt,omitempty"`
	FailureReason    string               `json:"failureReason,omitempty"`
	FailedAt         *time.Time           `json:"failedAt,omitempty"`
}

type PaymentService struct {
	Repo     *repository.OrderRepository
	Gateway  gateway.Adapter
	Pricing  *PricingEngine
	Currency string
	Metrics  *metrics.ServerMetrics
	Log      *zap.Logger
}

func NewPaymentService(
	repo *repository.OrderRepository,
	gw gateway.Adapter,
	pricing *PricingEngine,
	cfg configs.PaymentConfig,
	m *metrics.ServerMetrics,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{Repo: repo, Gateway: gw, Pricing: pricing, Currency: cfg.Currency, Metrics: m, Log: log}
}

// CreateIntent opens a gateway intent for the customer's pending online order.
// A recorded intent is returned unchanged, so retries never open a second one.
func (s *PaymentService) CreateIntent(ctx context.Context, customerID uint, req IntentRequest) (*gateway.OrderRef, error) {
	log := logging.For(ctx, s.Log).With(logging.OrderID(req.OrderID), logging.Step("create_intent"))

	o, err := s.Repo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, apperr.ErrForbidden.With("order belongs to another user")
	}
	if !o.UsesGateway() {
		return nil, apperr.ErrPaymentMethodMismatch.With("cash orders are settled on delivery")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.Currency
	}
	if currency != s.Currency {
		return nil, apperr.ErrValidation.With("unsupported currency " + currency)
	}
	if !s.Pricing.WithinTolerance(req.Amount, o.TotalAmount) {
		return nil, apperr.ErrTotalMismatch.With("amount does not match the order total",
			"expected "+o.TotalAmount.StringFixed(2), "received "+req.Amount.StringFixed(2))
	}
	if o.Status != entity.OrderStatusPending || o.PaymentStatus != entity.PaymentStatusPending {
		return nil, apperr.ErrIllegalTransition.With("order is not awaiting payment")
	}
	if ref := recordedIntent(o); ref != nil {
		return ref, nil
	}

	minor, err := gateway.ToMinorUnits(o.TotalAmount)
	if err != nil {
		return nil, err
	}
	ref, err := s.Gateway.CreateIntent(ctx, gateway.IntentRequest{
		AmountMinor: minor,
		Currency:    currency,
		Receipt:     gateway.ReceiptID(o.ID, o.CreatedAt),
		Notes: map[string]string{
			"orderId":     strconv.FormatUint(uint64(o.ID), 10),
			"orderNumber": o.OrderNumber,
		},
	})
	if err != nil {
		s.Metrics.GatewayCalls.WithLabelValues(gatewayOutcome(err)).Inc()
		log.Warn("gateway intent failed", zap.Error(err), zap.Bool("timeout", gateway.IsTimeout(err)))
		return nil, err
	}
	s.Metrics.GatewayCalls.WithLabelValues("ok").Inc()

	var out *gateway.OrderRef
	err = s.Repo.WithinTx(ctx, func(tx *gorm.DB) error {
		current, err := s.Repo.LockByID(tx, o.ID)
		if err != nil {
			return err
		}
		if existing := recordedIntent(current); existing != nil {
			out = existing
			return nil
		}
		details := current.PaymentDetails
		details.GatewayOrderID = ref.ID
		details.Receipt = ref.Receipt
		details.IntentAmountMinor = ref.AmountMinor
		details.Currency = ref.Currency

		ok, err := s.Repo.UpdateGuarded(tx, o.ID,
			repository.Guard{Status: entity.OrderStatusPending, PaymentStatus: entity.PaymentStatusPending},
			map[string]any{"payment_details": details})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrStaleStatus.With("order stopped awaiting payment")
		}
		out = ref
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.Error("recording intent failed", zap.Error(err), zap.String("gateway_order_id", ref.ID))
		}
		return nil, err
	}
	log.Info("payment intent created", zap.String("gateway_order_id", out.ID))
	return out, nil
}

func recordedIntent(o *entity.Order) *gateway.OrderRef {
	d := o.PaymentDetails
	if d.GatewayOrderID == "" {
		return nil
	}
	return &gateway.OrderRef{
		ID:          d.GatewayOrderID,
		AmountMinor: d.IntentAmountMinor,
		Currency:    d.Currency,
		Receipt:     d.Receipt,
		Status:      "created",
	}
}

func gatewayOutcome(err error) string {
	switch {
	case gateway.IsTimeout(err):
		return "timeout"
	case errors.Is(err, apperr.ErrGatewayUnavailable):
		return "unavailable"
	case errors.Is(err, apperr.ErrGatewayRejected):
		return "rejected"
	default:
		return "error"
	}
}

// Get returns the payment view to the order's customer, its chef, or an admin.
func (s *PaymentService) Get(ctx context.Context, userID uint, role string, orderID uint) (*PaymentView, error) {
	o, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanView(o, userID, role) {
		return nil, apperr.ErrForbidden.With("order belongs to another user")
	}
	d := o.PaymentDetails
	return &PaymentView{
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		Status:           o.Status,
		PaymentMethod:    o.PaymentMethod,
		PaymentStatus:    o.PaymentStatus,
		TotalAmount:      o.TotalAmount,
		Currency:         d.Currency,
		GatewayOrderID:   d.GatewayOrderID,
		GatewayPaymentID: d.GatewayPaymentID,
		VerifiedVia:      d.VerifiedVia,
		PaidAt:           d.PaidAt,
		FailureReason:    d.FailureReason,
		FailedAt:         d.FailedAt,
	}, nil
}
