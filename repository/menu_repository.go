package repository

import (
	"context"

	"gorm.io/gorm"

	"homechef/entity"
	"homechef/pkg/apperr"
)

// MenuRepository reads seller menus and owns the stock counters on menu items.
type MenuRepository struct {
	DB *gorm.DB
}

func NewMenuRepository(db *gorm.DB) *MenuRepository {
	return &MenuRepository{DB: db}
}

// FindByIDs loads menus with their items and delivery areas, keyed by menu id.
// Unknown ids are simply absent from the result.
func (r *MenuRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]entity.Menu, error) {
	out := make(map[uint]entity.Menu, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var menus []entity.Menu
	err := r.DB.WithContext(ctx).
		Preload("Items").
		Preload("DeliveryAreas").
		Where("id IN ?", ids).
		Find(&menus).Error
	if err != nil {
		return nil, err
	}
	for _, m := range menus {
		out[m.ID] = m
	}
	return out, nil
}

// Reserve takes qty units of an item off the shelf. The conditional update is the
// only stock check that counts; zero rows means another order got there first.
func (r *MenuRepository) Reserve(tx *gorm.DB, menuID, itemID uint, qty int) error {
	res := tx.Model(&entity.MenuItem{}).
		Where("id = ? AND menu_id = ? AND is_available = ? AND available_quantity >= ?", itemID, menuID, true, qty).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrItemUnavailable.With("not enough stock for menu item", entity.ItemRef(menuID, itemID))
	}
	return nil
}

// Restock puts reserved units back, e.g. when an order is cancelled.
func (r *MenuRepository) Restock(tx *gorm.DB, menuID, itemID uint, qty int) error {
	return tx.Model(&entity.MenuItem{}).
		Where("id = ? AND menu_id = ?", itemID, menuID).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity + ?", qty)).Error
}
