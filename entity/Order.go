package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypePickup
}

// Order is written once by OrderRepository.Create. After that only status,
// payment status, payment details and the fulfillment timestamps change.
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderNumber string `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"`

	CustomerID uint `gorm:"index;not null" json:"customerId"`
	SellerID   uint `gorm:"index;not null" json:"sellerId"`
	MenuID     uint `gorm:"not null" json:"menuId"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`

	ItemsTotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"itemsTotal"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"deliveryFee"`
	Tax         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Discount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`

	OrderType       OrderType       `gorm:"size:16;not null" json:"orderType"`
	DeliveryAddress DeliveryAddress `gorm:"type:text" json:"deliveryAddress,omitempty"`

	Status         OrderStatus    `gorm:"size:24;index;not null" json:"status"`
	PaymentStatus  PaymentStatus  `gorm:"size:16;not null" json:"paymentStatus"`
	PaymentMethod  PaymentMethod  `gorm:"size:16;not null" json:"paymentMethod"`
	PaymentDetails PaymentDetails `gorm:"type:text" json:"paymentDetails"`

	CustomerNotes       string     `gorm:"size:300" json:"customerNotes,omitempty"`
	EstimatedDeliveryAt *time.Time `json:"estimatedDeliveryAt,omitempty"`

	ConfirmedAt      *time.Time `json:"confirmedAt,omitempty"`
	PreparingAt      *time.Time `json:"preparingAt,omitempty"`
	ReadyAt          *time.Time `json:"readyAt,omitempty"`
	OutForDeliveryAt *time.Time `json:"outForDeliveryAt,omitempty"`
	DeliveredAt      *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UsesGateway reports whether the order is settled through the payment gateway.
func (o *Order) UsesGateway() bool {
	return o.PaymentMethod == PaymentMethodOnline || o.PaymentMethod == PaymentMethodUPI
}
