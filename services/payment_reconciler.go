package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"homechef/configs"
	"homechef/entity"
	"homechef/pkg/apperr"
	"homechef/pkg/events"
	"homechef/pkg/gateway"
	"homechef/pkg/logging"
	"homechef/pkg/metrics"
	"homechef/repository"
)

const (
	VerifiedViaClient  = "client"
	VerifiedViaWebhook = "webhook"
)

type VerifyRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" binding:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
	OrderID          uint   `json:"orderId" binding:"required"`
}

type VerificationResult struct {
	OrderID          uint                 `json:"orderId"`
	OrderNumber      string               `json:"orderNumber"`
	Status           entity.OrderStatus   `json:"status"`
	PaymentStatus    entity.PaymentStatus `json:"paymentStatus"`
	GatewayPaymentID string               `json:"gatewayPaymentId"`
	// AlreadyApplied is set when the same payment had been confirmed before.
	AlreadyApplied bool `json:"alreadyApplied"`
}

// PaymentReconciler applies gateway callbacks to orders. Every state change runs
// in a transaction holding the order row.
type PaymentReconciler struct {
	Repo          *repository.OrderRepository
	KeySecret     string
	WebhookSecret string
	Events        events.Publisher
	Metrics       *metrics.ServerMetrics
	Log           *zap.Logger
	Now           func() time.Time
}

func NewPaymentReconciler(
	repo *repository.OrderRepository,
	cfg configs.PaymentConfig,
	pub events.Publisher,
	m *metrics.ServerMetrics,
	log *zap.Logger,
) *PaymentReconciler {
	return &PaymentReconciler{
		Repo:          repo,
		KeySecret:     cfg.KeySecret,
		WebhookSecret: cfg.WebhookSecret,
		Events:        pub,
		Metrics:       m,
		Log:           log,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// ----- Client callback -----

// Verify checks the payment signature and confirms the order. A bad signature on
// an order still awaiting payment cancels it; a paid order is never downgraded.
func (r *PaymentReconciler) Verify(ctx context.Context, req VerifyRequest) (*VerificationResult, error) {
	log := logging.For(ctx, r.Log).With(logging.OrderID(req.OrderID), logging.Step("verify_payment"))

	if !gateway.VerifyPaymentSignature(r.KeySecret, req.GatewayOrderID, req.GatewayPaymentID, req.Signature) {
		if err := r.rejectSignature(ctx, req); err != nil {
			log.Error("recording signature mismatch failed", zap.Error(err))
			r.Metrics.Verifications.WithLabelValues(VerifiedViaClient, "error").Inc()
			return nil, err
		}
		r.Metrics.Verifications.WithLabelValues(VerifiedViaClient, "signature_invalid").Inc()
		log.Warn("payment signature mismatch", zap.String("gateway_order_id", req.GatewayOrderID),
			zap.String("gateway_payment_id", req.GatewayPaymentID))
		return nil, apperr.ErrSignatureInvalid
	}

	return r.confirm(ctx, req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature, VerifiedViaClient)
}

// confirm marks a pending order paid and confirmed in one guarded UPDATE.
// The caller has already authenticated the payment.
func (r *PaymentReconciler) confirm(ctx context.Context, orderID uint, gatewayOrderID, paymentID, signature, via string) (*VerificationResult, error) {
	log := logging.For(ctx, r.Log).With(logging.OrderID(orderID), logging.Step("confirm_payment"), zap.String("via", via))
	var res VerificationResult
	var refused error

	err := r.Repo.WithinTx(ctx, func(tx *gorm.DB) error {
		o, err := r.Repo.LockByID(tx, orderID)
		if err != nil {
			return err
		}
		if !o.UsesGateway() {
			return apperr.ErrPaymentMethodMismatch.With("cash orders are not paid through the gateway")
		}
		if o.PaymentDetails.GatewayOrderID == "" || o.PaymentDetails.GatewayOrderID != gatewayOrderID {
			return apperr.ErrIntentMismatch
		}

		res = VerificationResult{
			OrderID:          o.ID,
			OrderNumber:      o.OrderNumber,
			Status:           o.Status,
			PaymentStatus:    o.PaymentStatus,
			GatewayPaymentID: o.PaymentDetails.GatewayPaymentID,
		}

		switch o.PaymentStatus {
		case entity.PaymentStatusPaid:
			if o.PaymentDetails.GatewayPaymentID == paymentID {
				res.AlreadyApplied = true
				return nil
			}
			return apperr.ErrDuplicatePayment
		case entity.PaymentStatusPending:
		default:
			refused = apperr.ErrIllegalTransition.With("payment is already " + string(o.PaymentStatus))
			return r.keepUnappliedPayment(tx, o, paymentID, via)
		}

		step, err := Transition(o.Status, entity.OrderStatusConfirmed, ActorSystem)
		if err != nil {
			refused = err
			return r.keepUnappliedPayment(tx, o, paymentID, via)
		}

		now := r.Now()
		details := o.PaymentDetails
		details.GatewayPaymentID = paymentID
		details.Signature = signature
		details.VerifiedVia = via
		details.VerifiedAt = &now
		details.PaidAt = &now

		ok, err := r.Repo.UpdateGuarded(tx, o.ID,
			repository.Guard{Status: o.Status, PaymentStatus: entity.PaymentStatusPending},
			map[string]any{
				"status":          step.To,
				"payment_status":  entity.PaymentStatusPaid,
				step.Stamp:        now,
				"payment_details": details,
			})
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrStaleStatus
		}
		res.Status = step.To
		res.PaymentStatus = entity.PaymentStatusPaid
		res.GatewayPaymentID = paymentID
		return nil
	})
	if err == nil && refused != nil {
		r.Metrics.Verifications.WithLabelValues(via, "refund_required").Inc()
		log.Warn("authenticated payment not applied, refund required", zap.String("gateway_payment_id", paymentID),
			zap.String("code", string(apperr.KindOf(refused))))
		return nil, refused
	}
	if err != nil {
		outcome := "rejected"
		if apperr.KindOf(err) == apperr.KindInternal {
			outcome = "error"
			log.Error("payment confirmation failed", zap.Error(err))
		} else {
			log.Info("payment confirmation rejected", zap.String("code", string(apperr.KindOf(err))))
		}
		r.Metrics.Verifications.WithLabelValues(via, outcome).Inc()
		return nil, err
	}

	if res.AlreadyApplied {
		r.Metrics.Verifications.WithLabelValues(via, "already_applied").Inc()
		log.Info("payment already applied")
		return &res, nil
	}
	r.Metrics.Verifications.WithLabelValues(via, "confirmed").Inc()
	r.Metrics.Transitions.WithLabelValues(string(entity.OrderStatusConfirmed), string(ActorSystem)).Inc()
	log.Info("payment confirmed", zap.String("gateway_payment_id", paymentID))
	publishEvent(ctx, r.Events, r.Metrics, r.Log, events.New(events.PaymentConfirmed, res.OrderID, map[string]any{
		"orderNumber":      res.OrderNumber,
		"gatewayOrderId":   gatewayOrderID,
		"gatewayPaymentId": paymentID,
		"verifiedVia":      via,
	}))
	return &res, nil
}

// keepUnappliedPayment stores an authenticated payment that can no longer confirm
// its order, so it can be found and refunded. Status fields are left as they are.
func (r *PaymentReconciler) keepUnappliedPayment(tx *gorm.DB, o *entity.Order, paymentID, via string) error {
	if o.PaymentDetails.AttemptedPaymentID == paymentID {
		return nil
	}
	now := r.Now()
	details := o.PaymentDetails
	details.AttemptedPaymentID = paymentID
	details.VerifiedVia = via
	details.VerifiedAt = &now
	details.FailureReason = fmt.Sprintf("payment %s captured while order was %s with payment %s; refund required",
		paymentID, o.Status, o.PaymentStatus)

	_, err := r.Repo.UpdateGuarded(tx, o.ID,
		repository.Guard{Status: o.Status, PaymentStatus: o.PaymentStatus},
		map[string]any{"payment_details": details})
	return err
}

// rejectSignature cancels a gateway order still awaiting payment after a forged
// or corrupted callback. Missing orders and settled payments are left alone.
func (r *PaymentReconciler) rejectSignature(ctx context.Context, req VerifyRequest) error {
	var cancelled bool
	err := r.Repo.WithinTx(ctx, func(tx *gorm.DB) error {
		o, err := r.Repo.LockByID(tx, req.OrderID)
		if errors.Is(err, apperr.ErrOrderNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !o.UsesGateway() || o.PaymentStatus != entity.PaymentStatusPending {
			return nil
		}

		now := r.Now()
		details := o.PaymentDetails
		details.FailureReason = fmt.Sprintf("signature mismatch for gateway order %q", req.GatewayOrderID)
		details.AttemptedPaymentID = req.GatewayPaymentID
		details.FailedAt = &now

		cancelled, err = r.failPending(tx, o, details, now)
		return err
	})
	if err == nil && cancelled {
		r.publishFailed(ctx, req.OrderID, "signature_mismatch")
	}
	return err
}

// failPending marks the payment failed and, when the order has not moved on,
// cancels it and returns its stock. It reports whether anything changed.
func (r *PaymentReconciler) failPending(tx *gorm.DB, o *entity.Order, details entity.PaymentDetails, now time.Time) (bool, error) {
	updates := map[string]any{
		"payment_status":  entity.PaymentStatusFailed,
		"payment_details": details,
	}
	restock := false
	if step, err := Transition(o.Status, entity.OrderStatusCancelled, ActorSystem); err == nil && !step.NoOp {
		updates["status"] = step.To
		updates[step.Stamp] = now
		restock = step.Restock
	}

	ok, err := r.Repo.UpdateGuarded(tx, o.ID,
		repository.Guard{Status: o.Status, PaymentStatus: entity.PaymentStatusPending}, updates)
	if err != nil || !ok {
		return false, err
	}
	if restock {
		if err := r.Repo.Restock(tx, o); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *PaymentReconciler) publishFailed(ctx context.Context, orderID uint, reason string) {
	r.Metrics.Transitions.WithLabelValues(string(entity.OrderStatusCancelled), string(ActorSystem)).Inc()
	publishEvent(ctx, r.Events, r.Metrics, r.Log, events.New(events.PaymentFailed, orderID, map[string]any{
		"reason": reason,
	}))
}

// ----- Failure callback -----

// RecordFailure stores the provider's failure payload on an order awaiting
// payment and cancels it. Paid orders and repeated failures are left as they are.
// applied reports whether the order changed.
func (r *PaymentReconciler) RecordFailure(ctx context.Context, orderID uint, payload json.RawMessage) (applied bool, err error) {
	log := logging.For(ctx, r.Log).With(logging.OrderID(orderID), logging.Step("record_failure"))
	if len(payload) > 0 && !json.Valid(payload) {
		quoted, _ := json.Marshal(string(payload))
		payload = quoted
	}

	err = r.Repo.WithinTx(ctx, func(tx *gorm.DB) error {
		o, err := r.Repo.LockByID(tx, orderID)
		if err != nil {
			return err
		}
		if !o.UsesGateway() || o.PaymentStatus != entity.PaymentStatusPending {
			return nil
		}

		now := r.Now()
		details := o.PaymentDetails
		details.FailureReason = "payment_failed"
		details.ProviderError = payload
		details.FailedAt = &now

		applied, err = r.failPending(tx, o, details, now)
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.Error("record payment failure failed", zap.Error(err))
		}
		return false, err
	}
	if applied {
		log.Info("payment failure recorded")
		r.publishFailed(ctx, orderID, "payment_failed")
	}
	return applied, nil
}

// ----- Webhook -----

type WebhookResult struct {
	Event   string `json:"event"`
	OrderID uint   `json:"orderId,omitempty"`
	Outcome string `json:"outcome"`
}

// HandleWebhook authenticates the raw body and applies payment.captured and
// payment.failed. Other events are acknowledged without effect.
func (r *PaymentReconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if r.WebhookSecret == "" || !gateway.VerifyWebhookSignature(r.WebhookSecret, body, signature) {
		r.Metrics.Verifications.WithLabelValues(VerifiedViaWebhook, "signature_invalid").Inc()
		return nil, apperr.ErrSignatureInvalid.With("webhook signature invalid")
	}
	ev, err := gateway.ParseWebhook(body)
	if err != nil {
		return nil, apperr.ErrValidation.With(err.Error())
	}

	res := &WebhookResult{Event: ev.Event, Outcome: "ignored"}
	if ev.Event != gateway.EventPaymentCaptured && ev.Event != gateway.EventPaymentFailed {
		return res, nil
	}

	p := ev.Payload.Payment.Entity
	id, err := strconv.ParseUint(p.Note("orderId"), 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.ErrValidation.With("webhook payment carries no orderId note")
	}
	res.OrderID = uint(id)

	switch ev.Event {
	case gateway.EventPaymentCaptured:
		vr, err := r.confirm(ctx, res.OrderID, p.OrderID, p.ID, "", VerifiedViaWebhook)
		if err != nil {
			return nil, err
		}
		res.Outcome = "confirmed"
		if vr.AlreadyApplied {
			res.Outcome = "already_applied"
		}
	case gateway.EventPaymentFailed:
		applied, err := r.RecordFailure(ctx, res.OrderID, rawPaymentEntity(body))
		if err != nil {
			return nil, err
		}
		res.Outcome = "no_change"
		if applied {
			res.Outcome = "failed"
		}
	}
	return res, nil
}

// rawPaymentEntity returns payload.payment.entity exactly as the provider sent it.
func rawPaymentEntity(body []byte) json.RawMessage {
	var env struct {
		Payload struct {
			Payment struct {
				Entity json.RawMessage `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	return env.Payload.Payment.Entity
}
