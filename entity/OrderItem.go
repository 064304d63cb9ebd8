package entity

import "github.com/shopspring/decimal"

// OrderItem is a frozen copy of a menu item at the time the order was placed.
type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"index;not null" json:"orderId"`
	MenuItemID      uint            `gorm:"not null" json:"menuItemId"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"lineTotal"`
	SpecialRequests string          `gorm:"size:200" json:"specialRequests,omitempty"`
}
