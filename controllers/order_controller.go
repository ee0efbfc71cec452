package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest represents the request body for converting the cart
// into an order
type CreateOrderRequest struct {
	Address      string  `json:"address" binding:"required"`
	City         string  `json:"city" binding:"required"`
	Commune      string  `json:"commune" binding:"required"`
	Instructions *string `json:"instructions"`
}

// UpdateOrderStatusRequest represents the request body for a status
// transition
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CourierPositionRequest represents the request body for a courier position
// update
type CourierPositionRequest struct {
	Lat decimal.Decimal `json:"lat" binding:"required"`
	Lng decimal.Decimal `json:"lng" binding:"required"`
}

// CreateOrder handles POST /api/v1/orders - converts the user's cart into an
// order, freezing line prices and computing totals
func CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
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

	order, err := services.ConvertCartToOrder(c.Request.Context(), config.GetDB(), user.ID, services.CheckoutInput{
		Address:      req.Address,
		City:         req.City,
		Commune:      req.Commune,
		Instructions: req.Instructions,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/orders - lists the user's own orders, or
// all orders for holders of orders.view.all
func ListOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	db := config.GetDB()
	seesAll, err := services.HasPermission(c.Request.Context(), db, user.ID, "orders.view.all")
	if err != nil {
		seesAll = false
	}

	query := db.Model(&models.Order{})
	if !seesAll {
		query = query.Where("user_id = ?", user.ID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count orders",
			},
		})
		return
	}

	var orders []models.Order
	if err := query.Preload("Lines.Dish").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// findVisibleOrder loads an order and verifies the user may see it (owner or
// orders.view.all). Writes the error envelope and returns false on failure.
func findVisibleOrder(c *gin.Context, user *models.User, order *models.Order) bool {
	db := config.GetDB()
	if err := db.Preload("Lines.Dish").Preload("User").First(order, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return false
	}

	if order.UserID == user.ID {
		return true
	}

	seesAll, err := services.HasPermission(c.Request.Context(), db, user.ID, "orders.view.all")
	if err != nil || !seesAll {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PERMISSION_DENIED",
				"message": "You do not have permission to access this order",
			},
		})
		return false
	}

	return true
}

// GetOrder handles GET /api/v1/orders/:id - order detail for the owner or
// holders of orders.view.all
func GetOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var order models.Order
	if !findVisibleOrder(c, user, &order) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status - advances an
// order one step along the happy path. Each transition requires its own
// permission key.
func UpdateOrderStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
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

	permKey, known := services.TransitionPermission[req.Status]
	if !known {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATUS",
				"message": "Unknown target order status",
			},
		})
		return
	}

	db := config.GetDB()
	allowed, err := services.HasPermission(c.Request.Context(), db, user.ID, permKey)
	if err != nil || !allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PERMISSION_DENIED",
				"message": "You do not have permission to perform this transition",
			},
		})
		return
	}

	orderID, parseErr := strconv.ParseUint(c.Param("id"), 10, 64)
	if parseErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Order ID must be numeric",
			},
		})
		return
	}

	order, updateErr := services.UpdateOrderStatus(c.Request.Context(), db, uint(orderID), req.Status)
	if updateErr != nil {
		respondError(c, updateErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CancelOrder handles PUT /api/v1/orders/:id/cancel - cancels an order that
// has not entered preparation. The owner can always cancel their own order;
// staff need orders.cancellation.update.
func CancelOrder(c *gin.Context) {
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
		allowed, err := services.HasPermission(c.Request.Context(), db, user.ID, "orders.cancellation.update")
		if err != nil || !allowed {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PERMISSION_DENIED",
					"message": "You do not have permission to cancel this order",
				},
			})
			return
		}
	}

	cancelled, cancelErr := services.CancelOrder(c.Request.Context(), db, order.ID)
	if cancelErr != nil {
		respondError(c, cancelErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cancelled,
	})
}

// UpdateCourierPosition handles PUT /api/v1/orders/:id/courier-position -
// records the courier's GPS position while the order is out for delivery
// (requires orders.delivery.update)
func UpdateCourierPosition(c *gin.Context) {
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

	var req CourierPositionRequest
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

	// Conditioning the write on the status keeps a position from landing on
	// an order that was delivered or cancelled since the read.
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusOutForDelivery).
		Updates(map[string]interface{}{
			"courier_lat": req.Lat,
			"courier_lng": req.Lng,
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update courier position",
			},
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_IN_DELIVERY",
				"message": "Courier position can only be updated while the order is out for delivery",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Courier position updated",
	})
}

// TrackOrder handles GET /api/v1/orders/:id/track - status, milestone
// timestamps and courier position for the owner or holders of
// orders.view.all
func TrackOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var order models.Order
	if !findVisibleOrder(c, user, &order) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order_id":            order.ID,
			"status":              order.Status,
			"created_at":          order.CreatedAt,
			"confirmed_at":        order.ConfirmedAt,
			"preparing_at":        order.PreparingAt,
			"out_for_delivery_at": order.OutForDeliveryAt,
			"delivered_at":        order.DeliveredAt,
			"cancelled_at":        order.CancelledAt,
			"courier_lat":         order.CourierLat,
			"courier_lng":         order.CourierLng,
		},
	})
}
