package services

import (
	"context"
	"errors"

	"github.com/lecube/cube-api/apperrors"
	"github.com/lecube/cube-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GetSettings returns the restaurant settings singleton.
func GetSettings(ctx context.Context, db *gorm.DB) (*models.RestaurantSettings, error) {
	ctx, cancel := boundedContext(ctx)
	defer cancel()

	var settings models.RestaurantSettings
	if err := db.WithContext(ctx).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("SETTINGS_NOT_FOUND", "Restaurant settings are not initialized")
		}
		return nil, apperrors.Unavailable("Failed to load restaurant settings", err)
	}
	return &settings, nil
}

// EnsureDefaultSettings seeds the settings singleton on first boot. Existing
// settings are left untouched.
func EnsureDefaultSettings(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.RestaurantSettings{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	settings := models.RestaurantSettings{
		Name:                  "Le Cube",
		AirtelMoneyEnabled:    true,
		MobileCashEnabled:     true,
		CashOnDeliveryEnabled: true,
		TaxRate:               decimal.NewFromFloat(0.18),
	}
	return db.Create(&settings).Error
}
