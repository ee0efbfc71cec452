package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the single active cart of a user, created lazily on first use.
// Version is bumped on every conversion so that concurrent checkouts of the
// same cart cannot both commit.
type Cart struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User            `gorm:"foreignKey:UserID" json:"-"`
	PromoCode *string         `json:"promo_code,omitempty"`
	Discount  decimal.Decimal `gorm:"type:decimal(8,2);not null;default:0" json:"discount"`
	Version   int             `gorm:"not null;default:0" json:"-"`
	Items     []CartLine      `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Cart model
func (Cart) TableName() string {
	return "carts"
}

// CartLine is one dish in a cart with its chosen variation and customization.
type CartLine struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CartID        uint      `gorm:"not null;index" json:"cart_id"`
	DishID        uint      `gorm:"not null;index" json:"dish_id"`
	Dish          Dish      `gorm:"foreignKey:DishID" json:"dish"`
	Quantity      int       `gorm:"not null;check:quantity >= 1" json:"quantity"`
	VariationID   *string   `json:"variation_id,omitempty"`
	Customization *string   `json:"customization,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for the CartLine model
func (CartLine) TableName() string {
	return "cart_lines"
}
