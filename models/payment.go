package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment modes. cash_on_delivery is the only mode where CashTendered is
// meaningful.
const (
	PaymentModeAirtelMoney    = "airtel_money"
	PaymentModeMobileCash     = "mobile_cash"
	PaymentModeCashOnDelivery = "cash_on_delivery"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusConfirmed = "confirmed"
	PaymentStatusFailed    = "failed"
)

// Payment records how an order is paid. Exactly one per order; Amount always
// equals the order total at creation time.
type Payment struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	OrderID      uint             `gorm:"uniqueIndex;not null" json:"order_id"`
	Order        Order            `gorm:"foreignKey:OrderID" json:"-"`
	Mode         string           `gorm:"not null" json:"mode"`
	Amount       decimal.Decimal  `gorm:"type:decimal(8,2);not null" json:"amount"`
	Status       string           `gorm:"not null;default:'pending'" json:"status"`
	Reference    *string          `json:"reference,omitempty"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`
	CashTendered *decimal.Decimal `gorm:"type:decimal(8,2)" json:"cash_tendered,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}

// ValidPaymentMode reports whether mode is one of the supported payment modes.
func ValidPaymentMode(mode string) bool {
	switch mode {
	case PaymentModeAirtelMoney, PaymentModeMobileCash, PaymentModeCashOnDelivery:
		return true
	}
	return false
}
