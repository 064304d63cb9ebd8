package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"homechef/entity"
	"homechef/pkg/apperr"
	"homechef/pkg/events"
	"homechef/pkg/logging"
	"homechef/pkg/metrics"
	"homechef/repository"
)

type OrderService struct {
	Repo      *repository.OrderRepository
	Menus     *repository.MenuRepository
	Pricing   *PricingEngine
	Validator OrderValidator
	Events    events.Publisher
	Metrics   *metrics.ServerMetrics
	Log       *zap.Logger

	Now        func() time.Time
	NextNumber func(time.Time) string
}

func NewOrderService(
	repo *repository.OrderRepository,
	menus *repository.MenuRepository,
	pricing *PricingEngine,
	pub events.Publisher,
	m *metrics.ServerMetrics,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		Repo:       repo,
		Menus:      menus,
		Pricing:    pricing,
		Events:     pub,
		Metrics:    m,
		Log:        log,
		Now:        func() time.Time { return time.Now().UTC() },
		NextNumber: RandomOrderNumber,
	}
}

// ----- Create -----

// Create validates and prices the cart against fresh menu data, then stores the
// order as pending/pending with its stock reserved.
func (s *OrderService) Create(ctx context.Context, customerID uint, req *OrderRequest) (*entity.Order, error) {
	log := logging.For(ctx, s.Log).With(zap.Uint("customer_id", customerID), logging.Step("create_order"))
	NormalizeRequest(req)
	now := s.Now()

	menus, err := s.Menus.FindByIDs(ctx, req.MenuIDs())
	if err != nil {
		return nil, s.createFailed(log, err)
	}
	if err := s.Validator.Validate(req, Catalog(menus), now); err != nil {
		return nil, s.createFailed(log, err)
	}

	area := ""
	if req.DeliveryAddress != nil {
		area = req.DeliveryAddress.Area
	}
	clientTotal := req.TotalAmount
	priced, err := s.Pricing.Price(req.Items, Catalog(menus), PriceOptions{
		OrderType:   req.OrderType,
		Area:        area,
		ClientTotal: &clientTotal,
	})
	if err != nil {
		return nil, s.createFailed(log, err)
	}

	o := &entity.Order{
		CustomerID:    customerID,
		SellerID:      priced.SellerID,
		MenuID:        priced.MenuID,
		Items:         priced.Items,
		ItemsTotal:    priced.ItemsTotal,
		DeliveryFee:   priced.DeliveryFee,
		Tax:           priced.Tax,
		Discount:      priced.Discount,
		TotalAmount:   priced.TotalAmount,
		OrderType:     req.OrderType,
		Status:        entity.OrderStatusPending,
		PaymentStatus: entity.PaymentStatusPending,
		PaymentMethod: req.PaymentMethod,
		CustomerNotes: req.CustomerNotes,
	}
	if req.OrderType == entity.OrderTypeDelivery && req.DeliveryAddress != nil {
		o.DeliveryAddress = *req.DeliveryAddress
	}
	if priced.EstimatedMinutes > 0 {
		eta := now.Add(time.Duration(priced.EstimatedMinutes) * time.Minute)
		o.EstimatedDeliveryAt = &eta
	}

	if err := s.Repo.Create(ctx, o, func() string { return s.NextNumber(now) }); err != nil {
		return nil, s.createFailed(log, err)
	}

	s.Metrics.OrdersCreated.WithLabelValues("created").Inc()
	log.Info("order created", logging.OrderID(o.ID), zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)))
	s.publish(ctx, events.New(events.OrderCreated, o.ID, map[string]any{
		"orderNumber":   o.OrderNumber,
		"customerId":    o.CustomerID,
		"sellerId":      o.SellerID,
		"totalAmount":   o.TotalAmount.StringFixed(2),
		"paymentMethod": o.PaymentMethod,
	}))
	return o, nil
}

func (s *OrderService) createFailed(log *zap.Logger, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.Metrics.OrdersCreated.WithLabelValues("error").Inc()
		log.Error("create order failed", zap.Error(err))
		return err
	}
	s.Metrics.OrdersCreated.WithLabelValues("rejected").Inc()
	log.Info("order rejected", zap.String("code", string(kind)), zap.String("reason", err.Error()))
	return err
}

// ----- Read -----

// Get returns the order to its customer, its chef, or an admin.
func (s *OrderService) Get(ctx context.Context, userID uint, role string, orderID uint) (*entity.Order, error) {
	o, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanView(o, userID, role) {
		return nil, apperr.ErrForbidden.With("order belongs to another user")
	}
	return o, nil
}

func CanView(o *entity.Order, userID uint, role string) bool {
	switch role {
	case entity.RoleAdmin:
		return true
	case entity.RoleChef:
		return o.SellerID == userID
	default:
		return o.CustomerID == userID
	}
}

// ----- Seller actions -----

// UpdateStatus moves one of the seller's orders to status to.
func (s *OrderService) UpdateStatus(ctx context.Context, sellerID, orderID uint, to entity.OrderStatus) (*entity.Order, error) {
	if !to.Valid() {
		return nil, apperr.ErrValidation.With("invalid order status " + string(to))
	}
	o, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.SellerID != sellerID {
		return nil, apperr.ErrForbidden.With("order belongs to another chef")
	}
	return s.transition(ctx, o, to, ActorSeller)
}

func (s *OrderService) Cancel(ctx context.Context, sellerID, orderID uint) (*entity.Order, error) {
	return s.UpdateStatus(ctx, sellerID, orderID, entity.OrderStatusCancelled)
}

func (s *OrderService) transition(ctx context.Context, o *entity.Order, to entity.OrderStatus, actor Actor) (*entity.Order, error) {
	log := logging.For(ctx, s.Log).With(logging.OrderID(o.ID), logging.Step("update_status"))
	from := o.Status

	step, err := Transition(from, to, actor)
	if err != nil {
		return nil, err
	}
	if step.NoOp {
		return o, nil
	}
	if err := fulfillmentGuard(o, from, to, actor); err != nil {
		return nil, err
	}

	now := s.Now()
	updates := map[string]any{"status": to, step.Stamp: now}
	err = s.Repo.WithinTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.Repo.UpdateGuarded(tx, o.ID, repository.Guard{Status: from}, updates)
		if err != nil {
			return err
		}
		if !ok {
			current, err := s.Repo.LockByID(tx, o.ID)
			if err != nil {
				return err
			}
			if current.Status == to && to.Terminal() {
				step.NoOp = true
				return nil
			}
			return apperr.ErrStaleStatus.With("order is now " + string(current.Status))
		}
		if step.Restock {
			return s.Repo.Restock(tx, o)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, apperr.ErrStaleStatus) {
			log.Error("status update failed", zap.Error(err))
		}
		return nil, err
	}

	if !step.NoOp {
		s.Metrics.Transitions.WithLabelValues(string(to), string(actor)).Inc()
		log.Info("order status changed", zap.String("from", string(from)), logging.Status(string(to)),
			zap.String("actor", string(actor)))
		s.publish(ctx, events.New(events.OrderStatusChanged, o.ID, map[string]any{
			"from":  from,
			"to":    to,
			"actor": actor,
		}))
	}
	return s.Repo.FindByID(ctx, o.ID)
}

// fulfillmentGuard holds the rules that depend on the order itself rather than
// on the status graph.
func fulfillmentGuard(o *entity.Order, from, to entity.OrderStatus, actor Actor) error {
	switch {
	case to == entity.OrderStatusOutForDelivery && o.OrderType != entity.OrderTypeDelivery:
		return apperr.ErrIllegalTransition.With("pickup orders are not sent out for delivery")
	case from == entity.OrderStatusReady && to == entity.OrderStatusDelivered && o.OrderType != entity.OrderTypePickup:
		return apperr.ErrIllegalTransition.With("delivery orders must go out for delivery first")
	case to == entity.OrderStatusConfirmed && actor == ActorSeller && o.UsesGateway() && o.PaymentStatus != entity.PaymentStatusPaid:
		return apperr.ErrPaymentPending
	}
	return nil
}

// publish is best-effort; a failed publish never undoes the committed change.
func (s *OrderService) publish(ctx context.Context, ev events.Event) {
	publishEvent(ctx, s.Events, s.Metrics, s.Log, ev)
}

func publishEvent(ctx context.Context, pub events.Publisher, m *metrics.ServerMetrics, log *zap.Logger, ev events.Event) {
	if err := pub.Publish(ctx, ev); err != nil {
		m.EventsDropped.Inc()
		logging.For(ctx, log).Warn("event not published", zap.String("event_type", ev.Type),
			logging.OrderID(ev.OrderID), zap.Error(err))
	}
}
