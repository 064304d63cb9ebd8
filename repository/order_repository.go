package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"homechef/entity"
	"homechef/pkg/apperr"
)

// maxNumberAttempts bounds retries when a generated order number collides.
const maxNumberAttempts = 5

type OrderRepository struct {
	DB    *gorm.DB
	Menus *MenuRepository
}

func NewOrderRepository(db *gorm.DB, menus *MenuRepository) *OrderRepository {
	return &OrderRepository{DB: db, Menus: menus}
}

// ---------------- Orders ----------------

// Create reserves stock for every line and inserts the order with its items in
// one transaction. nextNumber is asked for a fresh order number on each attempt;
// a unique-index collision retries the whole transaction.
func (r *OrderRepository) Create(ctx context.Context, o *entity.Order, nextNumber func() string) error {
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		o.ID = 0
		for i := range o.Items {
			o.Items[i].ID = 0
			o.Items[i].OrderID = 0
		}
		o.OrderNumber = nextNumber()

		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, it := range o.Items {
				if err := r.Menus.Reserve(tx, o.MenuID, it.MenuItemID, it.Quantity); err != nil {
					return err
				}
			}
			return tx.Create(o).Error
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}
	return fmt.Errorf("allocate order number: %w", err)
}

// FindByID loads an order and its line items.
func (r *OrderRepository) FindByID(ctx context.Context, orderID uint) (*entity.Order, error) {
	var o entity.Order
	err := r.DB.WithContext(ctx).Preload("Items").First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// WithinTx runs fn in a transaction bound to ctx.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}

// LockByID reads the order row with SELECT ... FOR UPDATE where the dialect
// supports it. SQLite has no row locks; its single connection serializes writers.
func (r *OrderRepository) LockByID(tx *gorm.DB, orderID uint) (*entity.Order, error) {
	var o entity.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := tx.Where("order_id = ?", o.ID).Order("id").Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// Guard is the state an UPDATE is conditioned on. Empty fields are not checked.
type Guard struct {
	Status        entity.OrderStatus
	PaymentStatus entity.PaymentStatus
}

// UpdateGuarded applies updates only while the stored row still matches guard.
// false means another writer changed the order first.
func (r *OrderRepository) UpdateGuarded(tx *gorm.DB, orderID uint, guard Guard, updates map[string]any) (bool, error) {
	q := tx.Model(&entity.Order{}).Where("id = ?", orderID)
	if guard.Status != "" {
		q = q.Where("status = ?", guard.Status)
	}
	if guard.PaymentStatus != "" {
		q = q.Where("payment_status = ?", guard.PaymentStatus)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Restock returns every line of o to its menu.
func (r *OrderRepository) Restock(tx *gorm.DB, o *entity.Order) error {
	for _, it := range o.Items {
		if err := r.Menus.Restock(tx, o.MenuID, it.MenuItemID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}
