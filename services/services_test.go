package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"homechef/configs"
	"homechef/entity"
	"homechef/pkg/events"
	"homechef/pkg/gateway"
	"homechef/pkg/metrics"
	"homechef/repository"
)

const (
	testKeySecret     = "rzp_test_secret"
	testWebhookSecret = "whsec_test"
	testSeller        = uint(7)
	testCustomer      = uint(1)
)

var base = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	db         *gorm.DB
	orders     *repository.OrderRepository
	menus      *repository.MenuRepository
	events     *events.Memory
	metrics    *metrics.ServerMetrics
	gw         *fakeGateway
	svc        *OrderService
	payments   *PaymentService
	reconciler *PaymentReconciler
	menu       entity.Menu
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := configs.ConnectionDB(&configs.Config{DBDriver: "sqlite", DBSource: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, configs.SetupDatabase(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	e := &env{db: db, events: &events.Memory{}, gw: &fakeGateway{}}
	e.menus = repository.NewMenuRepository(db)
	e.orders = repository.NewOrderRepository(db, e.menus)
	e.metrics = metrics.NewServerMetrics("orders", prometheus.NewRegistry())
	log := zaptest.NewLogger(t)
	pricing := testPricing()
	payCfg := configs.PaymentConfig{KeySecret: testKeySecret, WebhookSecret: testWebhookSecret, Currency: "INR"}

	e.svc = NewOrderService(e.orders, e.menus, pricing, e.events, e.metrics, log)
	e.svc.Now = func() time.Time { return base }
	seq := 0
	var mu sync.Mutex
	e.svc.NextNumber = func(now time.Time) string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return GenerateOrderNumber(now, seq)
	}
	e.payments = NewPaymentService(e.orders, e.gw, pricing, payCfg, e.metrics, log)
	e.reconciler = NewPaymentReconciler(e.orders, payCfg, e.events, e.metrics, log)
	e.reconciler.Now = func() time.Time { return base.Add(time.Minute) }

	e.menu = testMenu()
	require.NoError(t, db.Create(&e.menu).Error)
	return e
}

func testPricing() *PricingEngine {
	return &PricingEngine{TaxRate: dec("0.05"), Tolerance: dec("0.01"), DefaultDeliveryFee: dec("30")}
}

func testMenu() entity.Menu {
	return entity.Menu{
		SellerID:          testSeller,
		Date:              base.Truncate(24 * time.Hour),
		OrderDeadline:     base.Add(time.Hour),
		IsActive:          true,
		PickupAvailable:   true,
		DeliveryAvailable: true,
		Items: []entity.MenuItem{
			{Name: "Paneer Butter Masala", Price: dec("100"), IsAvailable: true, AvailableQuantity: 10, PreparationMinutes: 30},
			{Name: "Jeera Rice", Price: dec("50"), IsAvailable: true, AvailableQuantity: 10, PreparationMinutes: 20},
		},
		DeliveryAreas: []entity.DeliveryArea{{Area: "Kothrud", DeliveryFee: dec("50"), EstimatedMinutes: 25}},
	}
}

func address() *entity.DeliveryAddress {
	return &entity.DeliveryAddress{
		Street: "12 Lane 4", Area: "kothrud", City: "Pune", PostalCode: "411038", ContactNumber: "9800000000",
	}
}

// deliveryRequest is 2 x 100 + 1 x 50, fee 50, tax 12.50: total 312.50.
func (e *env) deliveryRequest(method entity.PaymentMethod, total string) *OrderRequest {
	return &OrderRequest{
		Items: []CartLine{
			{MenuID: e.menu.ID, ItemID: e.menu.Items[0].ID, Quantity: 2},
			{MenuID: e.menu.ID, ItemID: e.menu.Items[1].ID, Quantity: 1},
		},
		OrderType:       entity.OrderTypeDelivery,
		PaymentMethod:   method,
		DeliveryAddress: address(),
		TotalAmount:     dec(total),
	}
}

func (e *env) createOrder(t *testing.T, method entity.PaymentMethod) *entity.Order {
	t.Helper()
	o, err := e.svc.Create(context.Background(), testCustomer, e.deliveryRequest(method, "312.50"))
	require.NoError(t, err)
	return o
}

// createWithIntent creates an online order with a recorded gateway intent.
func (e *env) createWithIntent(t *testing.T) (*entity.Order, *gateway.OrderRef) {
	t.Helper()
	o := e.createOrder(t, entity.PaymentMethodOnline)
	ref, err := e.payments.CreateIntent(context.Background(), testCustomer, IntentRequest{Amount: dec("312.50"), OrderID: o.ID})
	require.NoError(t, err)
	return o, ref
}

func (e *env) reload(t *testing.T, id uint) *entity.Order {
	t.Helper()
	o, err := e.orders.FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}

func (e *env) stock(t *testing.T, idx int) int {
	t.Helper()
	var it entity.MenuItem
	require.NoError(t, e.db.First(&it, e.menu.Items[idx].ID).Error)
	return it.AvailableQuantity
}

type fakeGateway struct {
	mu    sync.Mutex
	calls int
	last  gateway.IntentRequest
	err   error
}

func (f *fakeGateway) CreateIntent(_ context.Context, req gateway.IntentRequest) (*gateway.OrderRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.OrderRef{
		ID:          fmt.Sprintf("order_TEST%04d", f.calls),
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		Receipt:     req.Receipt,
		Status:      "created",
		CreatedAt:   base,
	}, nil
}
