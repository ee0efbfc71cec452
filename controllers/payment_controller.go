package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	Mode         string           `json:"mode" binding:"required"`
	CashTendered *decimal.Decimal `json:"cash_tendered"`
}

// CreatePayment handles POST /api/v1/orders/:id/payment - records the
// payment of an order. The amount always equals the order total.
func CreatePayment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	db := config.GetDB()
	var order models.Order
	if err := db.First(&order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	if order.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PERMISSION_DENIED",
				"message": "You can only pay for your own orders",
			},
		})
		return
	}

	var req CreatePaymentRequest
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

	if !models.ValidPaymentMode(req.Mode) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_PAYMENT_MODE",
				"message": "Unknown payment mode",
			},
		})
		return
	}

	// Cash tendered is only meaningful for cash on delivery
	if req.CashTendered != nil && req.Mode != models.PaymentModeCashOnDelivery {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Cash tendered only applies to cash on delivery",
			},
		})
		return
	}
	if req.CashTendered != nil && req.CashTendered.LessThan(order.Total) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Cash tendered cannot be less than the order total",
			},
		})
		return
	}

	settings, settingsErr := services.GetSettings(c.Request.Context(), db)
	if settingsErr != nil {
		respondError(c, settingsErr)
		return
	}
	if !settings.ModeEnabled(req.Mode) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_MODE_DISABLED",
				"message": "This payment mode is currently disabled",
			},
		})
		return
	}

	var existing models.Payment
	if err := db.Where("order_id = ?", order.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_EXISTS",
				"message": "A payment is already recorded for this order",
			},
		})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to check existing payment",
			},
		})
		return
	}

	payment := models.Payment{
		OrderID:      order.ID,
		Mode:         req.Mode,
		Amount:       order.Total,
		Status:       models.PaymentStatusPending,
		CashTendered: req.CashTendered,
	}

	// Wallet payments get a reference for the provider callback
	if req.Mode != models.PaymentModeCashOnDelivery {
		ref := uuid.NewString()
		payment.Reference = &ref
	}

	if err := db.Create(&payment).Error; err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PAYMENT_EXISTS",
					"message": "A payment is already recorded for this order",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to record payment",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    payment,
	})
}

// settlePayment moves a pending payment to a terminal status. The write is
// guarded by the pending status so concurrent callbacks cannot both commit.
func settlePayment(c *gin.Context, target string) {
	db := config.GetDB()
	var payment models.Payment
	if err := db.First(&payment, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_NOT_FOUND",
				"message": "Payment not found",
			},
		})
		return
	}

	updates := map[string]interface{}{"status": target}
	if target == models.PaymentStatusConfirmed {
		updates["paid_at"] = time.Now()
	}

	res := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update payment",
			},
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PAYMENT_NOT_PENDING",
				"message": "Payment is not pending",
			},
		})
		return
	}

	if err := db.First(&payment, payment.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to reload payment",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    payment,
	})
}

// ConfirmPayment handles PUT /api/v1/payments/:id/confirm (requires
// payments.confirm)
func ConfirmPayment(c *gin.Context) {
	settlePayment(c, models.PaymentStatusConfirmed)
}

// FailPayment handles PUT /api/v1/payments/:id/fail (requires
// payments.confirm)
func FailPayment(c *gin.Context) {
	settlePayment(c, models.PaymentStatusFailed)
}
