package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. The happy path is pending → confirmed → in_preparation →
// out_for_delivery → delivered; cancelled is reachable from pending or
// confirmed only. delivered and cancelled are terminal.
const (
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusInPreparation  = "in_preparation"
	OrderStatusOutForDelivery = "out_for_delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCancelled      = "cancelled"
)

// Order is a frozen snapshot of a cart at checkout time: line prices, the
// delivery fee and the VAT rate are captured at creation and never re-read
// from the catalog or settings.
type Order struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"user"`

	// Delivery details
	Address      string  `gorm:"not null" json:"address"`
	City         string  `gorm:"not null" json:"city"`
	Commune      string  `gorm:"not null" json:"commune"`
	Instructions *string `json:"instructions,omitempty"`

	// Status progression and milestone timestamps, each stamped exactly once
	Status           string     `gorm:"not null;default:'pending';index" json:"status"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt      *time.Time `json:"preparing_at,omitempty"`
	OutForDeliveryAt *time.Time `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`

	// Financial summary, frozen at creation
	Subtotal    decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"subtotal"`
	Discount    decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0" json:"discount"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"delivery_fee"`
	Tax         decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"tax"`
	Total       decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"total"`

	// Courier position while out for delivery
	CourierLat *decimal.Decimal `gorm:"type:decimal(9,6)" json:"courier_lat,omitempty"`
	CourierLng *decimal.Decimal `gorm:"type:decimal(9,6)" json:"courier_lng,omitempty"`

	Lines     []OrderLine `gorm:"foreignKey:OrderID" json:"lines"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// Terminal reports whether the order is in a terminal status.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusDelivered || o.Status == OrderStatusCancelled
}

// OrderLine is one frozen cart line. UnitPrice is copied from the dish at
// order time and is immutable afterwards; the dish row itself is protected
// from deletion while referenced here.
type OrderLine struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	DishID        uint            `gorm:"not null;index" json:"dish_id"`
	Dish          Dish            `gorm:"foreignKey:DishID" json:"dish"`
	Quantity      int             `gorm:"not null;check:quantity >= 1" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"unit_price"`
	VariationID   *string         `json:"variation_id,omitempty"`
	Customization *string         `json:"customization,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for the OrderLine model
func (OrderLine) TableName() string {
	return "order_lines"
}
