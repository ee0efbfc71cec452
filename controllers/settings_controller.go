package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/shopspring/decimal"
)

// UpdateSettingsRequest represents the request body for patching the
// restaurant settings
type UpdateSettingsRequest struct {
	Name                  *string          `json:"name"`
	Address               *string          `json:"address"`
	AirtelMoneyEnabled    *bool            `json:"airtel_money_enabled"`
	MobileCashEnabled     *bool            `json:"mobile_cash_enabled"`
	CashOnDeliveryEnabled *bool            `json:"cash_on_delivery_enabled"`
	TaxRate               *decimal.Decimal `json:"tax_rate"`
}

// GetSettings handles GET /api/v1/settings - the restaurant-wide settings
func GetSettings(c *gin.Context) {
	settings, err := services.GetSettings(c.Request.Context(), config.GetDB())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    settings,
	})
}

// UpdateSettings handles PATCH /api/v1/settings (requires settings.manage).
// The write is guarded by the previously observed update time so concurrent
// edits cannot silently overwrite each other.
func UpdateSettings(c *gin.Context) {
	db := config.GetDB()
	settings, err := services.GetSettings(c.Request.Context(), db)
	if err != nil {
		respondError(c, err)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	if req.TaxRate != nil && req.TaxRate.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Tax rate cannot be negative",
			},
		})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.AirtelMoneyEnabled != nil {
		updates["airtel_money_enabled"] = *req.AirtelMoneyEnabled
	}
	if req.MobileCashEnabled != nil {
		updates["mobile_cash_enabled"] = *req.MobileCashEnabled
	}
	if req.CashOnDeliveryEnabled != nil {
		updates["cash_on_delivery_enabled"] = *req.CashOnDeliveryEnabled
	}
	if req.TaxRate != nil {
		updates["tax_rate"] = *req.TaxRate
	}

	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    settings,
		})
		return
	}

	res := db.Model(&models.RestaurantSettings{}).
		Where("id = ? AND updated_at = ?", settings.ID, settings.UpdatedAt).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update settings",
			},
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SETTINGS_CONFLICT",
				"message": "Settings were modified concurrently, reload and retry",
			},
		})
		return
	}

	updated, err := services.GetSettings(c.Request.Context(), db)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    updated,
	})
}
