package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dish statuses. Only active dishes can be added to a cart.
const (
	DishStatusActive     = "active"
	DishStatusInactive   = "inactive"
	DishStatusOutOfStock = "out_of_stock"
)

// Dish types, mirroring the menu structure (full menu, base dish, side, extra).
const (
	DishTypeMenu  = "menu"
	DishTypeBase  = "base"
	DishTypeSide  = "side"
	DishTypeExtra = "extra"
)

// Variation is one selectable option of a dish (e.g. size or spice level).
type Variation struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// VariationList is stored as a JSON column.
type VariationList []Variation

// Value implements driver.Valuer for VariationList.
func (v VariationList) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for VariationList.
func (v *VariationList) Scan(value interface{}) error {
	if value == nil {
		*v = VariationList{}
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	default:
		return fmt.Errorf("unsupported variations column type %T", value)
	}
}

// Contains reports whether the list has a variation with the given id.
func (v VariationList) Contains(id string) bool {
	for _, variation := range v {
		if variation.ID == id {
			return true
		}
	}
	return false
}

// Dish represents a catalog entry. Price is the current catalog price; orders
// freeze their own copy at creation time.
type Dish struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null" json:"name"`
	Description string          `json:"description"`
	Type        string          `gorm:"not null;default:'base'" json:"type"`
	Price       decimal.Decimal `gorm:"type:decimal(8,2);not null" json:"price"`
	Category    string          `gorm:"not null;index" json:"category"`
	Status      string          `gorm:"not null;default:'active'" json:"status"`
	Variations  VariationList   `gorm:"type:text" json:"variations"`
	ImageS3Key  *string         `json:"image_s3_key,omitempty"`
	ImageURL    *string         `gorm:"-" json:"image_url,omitempty"` // computed, presigned URL
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Dish model
func (Dish) TableName() string {
	return "dishes"
}

// Purchasable reports whether the dish can currently be added to a cart.
func (d *Dish) Purchasable() bool {
	return d.Status == DishStatusActive
}
