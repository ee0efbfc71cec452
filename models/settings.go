package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RestaurantSettings is the restaurant-wide configuration. Exactly one live
// row exists; it is seeded at startup and only ever updated in place.
type RestaurantSettings struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	Name                  string          `gorm:"not null;default:'Le Cube'" json:"name"`
	Address               string          `json:"address"`
	AirtelMoneyEnabled    bool            `gorm:"not null;default:true" json:"airtel_money_enabled"`
	MobileCashEnabled     bool            `gorm:"not null;default:true" json:"mobile_cash_enabled"`
	CashOnDeliveryEnabled bool            `gorm:"not null;default:true" json:"cash_on_delivery_enabled"`
	TaxRate               decimal.Decimal `gorm:"type:decimal(4,2);not null" json:"tax_rate"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the RestaurantSettings model
func (RestaurantSettings) TableName() string {
	return "restaurant_settings"
}

// ModeEnabled reports whether the given payment mode is currently accepted.
func (s *RestaurantSettings) ModeEnabled(mode string) bool {
	switch mode {
	case PaymentModeAirtelMoney:
		return s.AirtelMoneyEnabled
	case PaymentModeMobileCash:
		return s.MobileCashEnabled
	case PaymentModeCashOnDelivery:
		return s.CashOnDeliveryEnabled
	}
	return false
}
