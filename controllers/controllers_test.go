package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"homechef/configs"
	"homechef/entity"
	"homechef/pkg/events"
	"homechef/pkg/gateway"
	"homechef/pkg/metrics"
	"homechef/repository"
	"homechef/routes"
	"homechef/services"
	"homechef/utils"
)

const (
	jwtSecret     = "jwt-test"
	keySecret     = "rzp-test"
	webhookSecret = "wh-test"
	customerID    = uint(1)
	chefID        = uint(7)
)

type harness struct {
	t      *testing.T
	router *gin.Engine
	menu   entity.Menu
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"order_HTTP1","amount":%d,"currency":%q,"receipt":%q,"status":"created","created_at":1718000000}`,
			body.Amount, body.Currency, body.Receipt)
	}))
	t.Cleanup(provider.Close)

	cfg := &configs.Config{
		DBDriver:    "sqlite",
		DBSource:    "file::memory:",
		JWTSecret:   jwtSecret,
		CORSOrigins: []string{"*"},
		Payment: configs.PaymentConfig{
			KeyID: "rzp_test", KeySecret: keySecret, WebhookSecret: webhookSecret,
			BaseURL: provider.URL, Currency: "INR", GatewayTimeout: 2 * time.Second,
		},
		Pricing: configs.PricingConfig{
			TaxRate: decimal.RequireFromString("0.05"), TotalTolerance: decimal.RequireFromString("0.01"),
		},
	}
	db, err := configs.ConnectionDB(cfg)
	require.NoError(t, err)
	require.NoError(t, configs.SetupDatabase(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	log := zaptest.NewLogger(t)
	m := metrics.NewServerMetrics("orders", prometheus.NewRegistry())
	pub := &events.Memory{}
	menus := repository.NewMenuRepository(db)
	orders := repository.NewOrderRepository(db, menus)
	pricing := services.NewPricingEngine(cfg.Pricing)
	gw := gateway.NewRazorpay(gateway.Config{KeyID: cfg.Payment.KeyID, KeySecret: keySecret, BaseURL: provider.URL, Timeout: time.Second}, provider.Client())

	r := gin.New()
	routes.RegisterRoutes(r, routes.Deps{
		DB:         db,
		Config:     cfg,
		Log:        log,
		Metrics:    m,
		Orders:     services.NewOrderService(orders, menus, pricing, pub, m, log),
		Payments:   services.NewPaymentService(orders, gw, pricing, cfg.Payment, m, log),
		Reconciler: services.NewPaymentReconciler(orders, cfg.Payment, pub, m, log),
	})

	menu := entity.Menu{
		SellerID:          chefID,
		OrderDeadline:     time.Now().Add(time.Hour),
		IsActive:          true,
		PickupAvailable:   true,
		DeliveryAvailable: true,
		Items: []entity.MenuItem{
			{Name: "Thali", Price: decimal.NewFromInt(100), IsAvailable: true, AvailableQuantity: 5, PreparationMinutes: 20},
		},
	}
	require.NoError(t, db.Create(&menu).Error)
	return &harness{t: t, router: r, menu: menu}
}

func (h *harness) token(userID uint, role string) string {
	tok, err := utils.GenerateToken(userID, role, jwtSecret, time.Hour)
	require.NoError(h.t, err)
	return tok
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func (h *harness) do(method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	h.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(h.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (h *harness) orderBody(method string, total string) map[string]any {
	return map[string]any{
		"items":         []map[string]any{{"menuId": h.menu.ID, "itemId": h.menu.Items[0].ID, "quantity": 2}},
		"orderType":     "pickup",
		"paymentMethod": method,
		"totalAmount":   total,
	}
}

func (h *harness) createOrder(method string) entity.Order {
	h.t.Helper()
	w, env := h.do(http.MethodPost, "/orders", h.token(customerID, entity.RoleCustomer), h.orderBody(method, "210.00"))
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var o entity.Order
	require.NoError(h.t, json.Unmarshal(env.Data, &o))
	return o
}

func TestOrdersRequireAuthAndRole(t *testing.T) {
	h := newHarness(t)

	w, env := h.do(http.MethodPost, "/orders", "", h.orderBody("cash", "210"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.OK)

	w, _ = h.do(http.MethodPost, "/orders", "not-a-jwt", h.orderBody("cash", "210"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = h.do(http.MethodPost, "/orders", h.token(chefID, entity.RoleChef), h.orderBody("cash", "210"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	h := newHarness(t)
	o := h.createOrder("cash")

	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD"))
	assert.Equal(t, entity.OrderStatusPending, o.Status)
	assert.Equal(t, "210.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, chefID, o.SellerID)
}

func TestCreateOrderKeepsNotes(t *testing.T) {
	h := newHarness(t)
	tok := h.token(customerID, entity.RoleCustomer)

	for field, text := range map[string]string{"notes": "ring the bell", "customerNotes": "leave at gate"} {
		body := h.orderBody("cash", "210.00")
		body[field] = "  " + text + " "
		w, env := h.do(http.MethodPost, "/orders", tok, body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var o entity.Order
		require.NoError(t, json.Unmarshal(env.Data, &o))
		assert.Equal(t, text, o.CustomerNotes, field)
	}
}

func TestCreateOrderErrorsAreStructured(t *testing.T) {
	h := newHarness(t)
	tok := h.token(customerID, entity.RoleCustomer)

	w, env := h.do(http.MethodPost, "/orders", tok, h.orderBody("cash", "200.00"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "TOTAL_MISMATCH", env.Error.Code)
	require.Len(t, env.Error.Details, 2)
	assert.Equal(t, "expected 210.00", env.Error.Details[0].Message)

	body := h.orderBody("cash", "210.00")
	body["items"] = []map[string]any{{"menuId": 999, "itemId": 1, "quantity": 1}}
	w, env = h.do(http.MethodPost, "/orders", tok, body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "MENU_NOT_FOUND", env.Error.Details[0].Code)

	body = h.orderBody("cash", "210.00")
	body["orderType"] = "delivery"
	w, env = h.do(http.MethodPost, "/orders", tok, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, env.Error.Details, 5)

	w, _ = h.do(http.MethodPost, "/orders", tok, []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSellerStatusEndpoints(t *testing.T) {
	h := newHarness(t)
	o := h.createOrder("cash")
	chef := h.token(chefID, entity.RoleChef)
	path := fmt.Sprintf("/orders/%d/status", o.ID)

	w, env := h.do(http.MethodPut, path, chef, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, env.OK)

	w, env = h.do(http.MethodPut, path, chef, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)

	w, _ = h.do(http.MethodPut, path, h.token(chefID+1, entity.RoleChef), map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = h.do(http.MethodPut, path, h.token(customerID, entity.RoleCustomer), map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = h.do(http.MethodPut, path, chef, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	w, _ = h.do(http.MethodPut, "/orders/abc/status", chef, map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = h.do(http.MethodPut, fmt.Sprintf("/orders/%d/cancel", o.ID), chef, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), h.token(customerID, entity.RoleCustomer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got entity.Order
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, entity.OrderStatusCancelled, got.Status)

	w, _ = h.do(http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), h.token(customerID+1, entity.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	o := h.createOrder("online")
	cust := h.token(customerID, entity.RoleCustomer)

	w, env := h.do(http.MethodPost, "/payments/create-order", cust, map[string]any{"amount": "210.00", "currency": "INR", "orderId": o.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ref gateway.OrderRef
	require.NoError(t, json.Unmarshal(env.Data, &ref))
	assert.Equal(t, "order_HTTP1", ref.ID)
	assert.Equal(t, int64(21000), ref.AmountMinor)

	bad := map[string]any{"gatewayOrderId": ref.ID, "gatewayPaymentId": "pay_1", "signature": strings.Repeat("ab", 32), "orderId": o.ID}
	other := h.token(customerID+1, entity.RoleCustomer)
	w, _ = h.do(http.MethodPost, "/payments/verify", other, bad)
	assert.Equal(t, http.StatusForbidden, w.Code)

	good := map[string]any{
		"gatewayOrderId":   ref.ID,
		"gatewayPaymentId": "pay_1",
		"signature":        gateway.SignPayment(keySecret, ref.ID, "pay_1"),
		"orderId":          o.ID,
	}
	w, env = h.do(http.MethodPost, "/payments/verify", cust, good)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res services.VerificationResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, entity.PaymentStatusPaid, res.PaymentStatus)

	w, env = h.do(http.MethodPost, "/payments/verify", cust, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SIGNATURE_INVALID", env.Error.Code)

	w, env = h.do(http.MethodGet, fmt.Sprintf("/payments/%d", o.ID), h.token(chefID, entity.RoleChef), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"paymentStatus":"paid"`)
	assert.NotContains(t, string(env.Data), "signature")
}

func TestPaymentFailureAlwaysOK(t *testing.T) {
	h := newHarness(t)
	o := h.createOrder("upi")
	cust := h.token(customerID, entity.RoleCustomer)
	_, _ = h.do(http.MethodPost, "/payments/create-order", cust, map[string]any{"amount": "210", "orderId": o.ID})

	w, env := h.do(http.MethodPost, "/payments/failure", cust, map[string]any{"orderId": 999, "error": map[string]string{"code": "X"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recorded":false}`, string(env.Data))

	w, _ = h.do(http.MethodPost, "/payments/failure", cust, []byte("garbage"))
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = h.do(http.MethodPost, "/payments/failure", cust, map[string]any{"orderId": o.ID, "error": map[string]string{"code": "BAD_REQUEST_ERROR"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"recorded":true}`, string(env.Data))
}

func TestWebhookEndpoint(t *testing.T) {
	h := newHarness(t)
	o := h.createOrder("online")
	cust := h.token(customerID, entity.RoleCustomer)
	_, _ = h.do(http.MethodPost, "/payments/create-order", cust, map[string]any{"amount": "210", "orderId": o.ID})

	body := []byte(fmt.Sprintf(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_W","order_id":"order_HTTP1","notes":{"orderId":"%d"}}}}}`, o.ID))

	w, env := h.do(http.MethodPost, "/payments/webhook", "", body, "X-Razorpay-Signature", gateway.SignWebhook("nope", body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SIGNATURE_INVALID", env.Error.Code)

	w, env = h.do(http.MethodPost, "/payments/webhook", "", body, "X-Razorpay-Signature", gateway.SignWebhook(webhookSecret, body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"outcome":"confirmed"`)

	// a different payment for the same order is acknowledged but not applied
	dup := bytes.Replace(body, []byte("pay_W"), []byte("pay_Z"), 1)
	w, env = h.do(http.MethodPost, "/payments/webhook", "", dup, "X-Razorpay-Signature", gateway.SignWebhook(webhookSecret, dup))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "DUPLICATE_PAYMENT_ATTEMPT")
}

func TestHealthMetricsAndRequestID(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(http.MethodGet, "/health", "", nil, "X-Request-ID", "req-123")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))

	w, _ = h.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `homechef_orders_http_requests_total{handler="/health",status="200"} 2`)
}
