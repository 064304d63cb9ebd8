package controllers

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homechef/pkg/apperr"
	"homechef/pkg/logging"
	"homechef/pkg/resp"
	"homechef/services"
	"homechef/utils"
)

const webhookSignatureHeader = "X-Razorpay-Signature"

// maxWebhookBody caps what is read from the provider.
const maxWebhookBody = 1 << 20

type PaymentController struct {
	Payments   *services.PaymentService
	Reconciler *services.PaymentReconciler
	Orders     *services.OrderService
	Log        *zap.Logger
}

func NewPaymentController(
	payments *services.PaymentService,
	reconciler *services.PaymentReconciler,
	orders *services.OrderService,
	log *zap.Logger,
) *PaymentController {
	return &PaymentController{Payments: payments, Reconciler: reconciler, Orders: orders, Log: log}
}

// POST /payments/create-order
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var req services.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	ref, err := pc.Payments.CreateIntent(c.Request.Context(), utils.CurrentUserID(c), req)
	if err != nil {
		fail(c, pc.Log, err)
		return
	}
	resp.OK(c, ref)
}

// POST /payments/verify
func (pc *PaymentController) Verify(c *gin.Context) {
	var req services.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if _, err := pc.Orders.Get(ctx, utils.CurrentUserID(c), utils.CurrentRole(c), req.OrderID); err != nil {
		fail(c, pc.Log, err)
		return
	}

	res, err := pc.Reconciler.Verify(ctx, req)
	if err != nil {
		fail(c, pc.Log, err)
		return
	}
	resp.OK(c, res)
}

type paymentFailureReq struct {
	OrderID uint            `json:"orderId"`
	Error   json.RawMessage `json:"error"`
}

// POST /payments/failure always answers 200; the client has nothing to retry.
func (pc *PaymentController) Failure(c *gin.Context) {
	log := logging.For(c.Request.Context(), pc.Log).With(logging.Step("payment_failure"))
	var req paymentFailureReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == 0 {
		log.Warn("unreadable payment failure report", zap.Error(err))
		resp.OK(c, gin.H{"recorded": false})
		return
	}
	log = log.With(logging.OrderID(req.OrderID))

	ctx := c.Request.Context()
	if _, err := pc.Orders.Get(ctx, utils.CurrentUserID(c), utils.CurrentRole(c), req.OrderID); err != nil {
		log.Warn("payment failure report rejected", zap.Error(err))
		resp.OK(c, gin.H{"recorded": false})
		return
	}
	applied, err := pc.Reconciler.RecordFailure(ctx, req.OrderID, req.Error)
	if err != nil {
		log.Error("payment failure not recorded", zap.Error(err))
	}
	resp.OK(c, gin.H{"recorded": applied})
}

// GET /payments/:orderId
func (pc *PaymentController) Detail(c *gin.Context) {
	id, ok := utils.ParamUint(c, "orderId")
	if !ok {
		resp.BadRequest(c, "invalid order id")
		return
	}
	view, err := pc.Payments.Get(c.Request.Context(), utils.CurrentUserID(c), utils.CurrentRole(c), id)
	if err != nil {
		fail(c, pc.Log, err)
		return
	}
	resp.OK(c, view)
}

// POST /payments/webhook
// Domain rejections are acknowledged with 200 so the provider stops retrying;
// only a bad signature, a bad body or a server fault is reported as an error.
func (pc *PaymentController) Webhook(c *gin.Context) {
	log := logging.For(c.Request.Context(), pc.Log).With(logging.Step("webhook"))
	body, err := readLimited(c, maxWebhookBody)
	if err != nil {
		resp.BadRequest(c, "unreadable body")
		return
	}

	res, err := pc.Reconciler.HandleWebhook(c.Request.Context(), body, c.GetHeader(webhookSignatureHeader))
	switch {
	case err == nil:
		resp.OK(c, res)
	case errors.Is(err, apperr.ErrSignatureInvalid), errors.Is(err, apperr.ErrValidation):
		log.Warn("webhook rejected", zap.Error(err))
		resp.Error(c, err)
	case apperr.KindOf(err) == apperr.KindInternal:
		fail(c, pc.Log, err)
	default:
		log.Info("webhook not applied", zap.String("code", string(apperr.KindOf(err))), zap.Error(err))
		resp.OK(c, gin.H{"outcome": "rejected", "code": apperr.KindOf(err)})
	}
}
