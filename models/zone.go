package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryZone maps a commune to its flat delivery fee. Orders can only be
// delivered to communes with a zone.
type DeliveryZone struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"uniqueIndex;not null" json:"name"`
	Fee       decimal.Decimal `gorm:"type:decimal(6,2);not null" json:"fee"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the DeliveryZone model
func (DeliveryZone) TableName() string {
	return "delivery_zones"
}
