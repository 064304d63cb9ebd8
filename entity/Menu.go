package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Menu is a seller's dated catalog. Menu CRUD lives outside this service; orders
// only read menus and adjust item stock.
type Menu struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SellerID          uint      `gorm:"index;not null" json:"sellerId"`
	Date              time.Time `json:"date"`
	OrderDeadline     time.Time `gorm:"not null" json:"orderDeadline"`
	IsActive          bool      `gorm:"not null" json:"isActive"`
	PickupAvailable   bool      `gorm:"not null" json:"pickupAvailable"`
	DeliveryAvailable bool      `gorm:"not null" json:"deliveryAvailable"`

	Items         []MenuItem     `gorm:"foreignKey:MenuID" json:"items"`
	DeliveryAreas []DeliveryArea `gorm:"foreignKey:MenuID" json:"deliveryAreas"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type MenuItem struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	MenuID             uint            `gorm:"index;not null" json:"menuId"`
	Name               string          `gorm:"size:100;not null" json:"name"`
	Price              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	IsAvailable        bool            `gorm:"not null" json:"isAvailable"`
	AvailableQuantity  int             `gorm:"not null" json:"availableQuantity"`
	PreparationMinutes int             `json:"preparationMinutes"`
}

// InStock mirrors the storefront rule: flagged available and at least one unit left.
func (i MenuItem) InStock() bool {
	return i.IsAvailable && i.AvailableQuantity > 0
}

type DeliveryArea struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	MenuID           uint            `gorm:"index;not null" json:"menuId"`
	Area             string          `gorm:"size:100;not null" json:"area"`
	DeliveryFee      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"deliveryFee"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
}

// ItemRef formats a (menu, item) pair for error details.
func ItemRef(menuID, itemID uint) string {
	return fmt.Sprintf("menu %d item %d", menuID, itemID)
}
