package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/middleware"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/shopspring/decimal"
)

// AddCartItemRequest represents the request body for adding a cart line
type AddCartItemRequest struct {
	DishID        uint    `json:"dish_id" binding:"required"`
	Quantity      int     `json:"quantity" binding:"required,gte=1"`
	VariationID   *string `json:"variation_id"`
	Customization *string `json:"customization"`
}

// UpdateCartItemRequest represents the request body for updating a cart line
type UpdateCartItemRequest struct {
	Quantity      *int    `json:"quantity" binding:"omitempty,gte=1"`
	Customization *string `json:"customization"`
}

// ApplyPromoRequest represents the request body for applying a promo code
type ApplyPromoRequest struct {
	Code     string          `json:"code" binding:"required"`
	Discount decimal.Decimal `json:"discount" binding:"required"`
}

// GetCart handles GET /api/v1/cart - returns the user's cart, creating it
// lazily on first access
func GetCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	cart, cartErr := services.GetOrCreateCart(c.Request.Context(), config.GetDB(), userID)
	if cartErr != nil {
		respondError(c, cartErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}

// AddCartItem handles POST /api/v1/cart/items - adds a dish to the cart
func AddCartItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req AddCartItemRequest
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

	db := config.GetDB()
	var dish models.Dish
	if err := db.First(&dish, req.DishID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_NOT_FOUND",
				"message": "Dish not found",
			},
		})
		return
	}

	if !dish.Purchasable() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_NOT_AVAILABLE",
				"message": "Dish is not available for ordering",
			},
		})
		return
	}

	if req.VariationID != nil && !dish.Variations.Contains(*req.VariationID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Unknown variation for this dish",
			},
		})
		return
	}

	cart, cartErr := services.GetOrCreateCart(c.Request.Context(), db, userID)
	if cartErr != nil {
		respondError(c, cartErr)
		return
	}

	line := models.CartLine{
		CartID:        cart.ID,
		DishID:        dish.ID,
		Quantity:      req.Quantity,
		VariationID:   req.VariationID,
		Customization: req.Customization,
	}
	if err := db.Create(&line).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to add item to cart",
			},
		})
		return
	}

	if err := db.Preload("Items.Dish").First(cart, cart.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to reload cart",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    cart,
	})
}

// findOwnCartLine loads a cart line and verifies it belongs to the user's
// cart. Writes the error envelope and returns false on failure.
func findOwnCartLine(c *gin.Context, userID uint, line *models.CartLine) bool {
	db := config.GetDB()

	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CART_ITEM_NOT_FOUND",
				"message": "Cart item not found",
			},
		})
		return false
	}

	if err := db.Where("id = ? AND cart_id = ?", c.Param("id"), cart.ID).First(line).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CART_ITEM_NOT_FOUND",
				"message": "Cart item not found",
			},
		})
		return false
	}

	return true
}

// UpdateCartItem handles PATCH /api/v1/cart/items/:id - updates quantity or
// customization of a cart line
func UpdateCartItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var line models.CartLine
	if !findOwnCartLine(c, userID, &line) {
		return
	}

	var req UpdateCartItemRequest
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

	db := config.GetDB()
	updates := make(map[string]interface{})
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.Customization != nil {
		updates["customization"] = *req.Customization
	}

	if len(updates) > 0 {
		if err := db.Model(&line).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to update cart item",
				},
			})
			return
		}
	}

	if err := db.Preload("Dish").First(&line, line.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to reload cart item",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    line,
	})
}

// RemoveCartItem handles DELETE /api/v1/cart/items/:id - removes a cart line
func RemoveCartItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var line models.CartLine
	if !findOwnCartLine(c, userID, &line) {
		return
	}

	if err := config.GetDB().Delete(&line).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to remove cart item",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cart item removed",
	})
}

// ApplyPromo handles POST /api/v1/cart/promo - records a promo code and its
// discount on the cart. The discount is re-validated (and clamped) at
// checkout.
func ApplyPromo(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	var req ApplyPromoRequest
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

	if req.Discount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Discount cannot be negative",
			},
		})
		return
	}

	db := config.GetDB()
	cart, cartErr := services.GetOrCreateCart(c.Request.Context(), db, userID)
	if cartErr != nil {
		respondError(c, cartErr)
		return
	}

	if err := db.Model(&models.Cart{}).Where("id = ?", cart.ID).Updates(map[string]interface{}{
		"promo_code": req.Code,
		"discount":   req.Discount,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to apply promo code",
			},
		})
		return
	}

	if err := db.Preload("Items.Dish").First(cart, cart.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to reload cart",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    cart,
	})
}

// ClearCart handles DELETE /api/v1/cart - removes every line from the cart
func ClearCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return
	}

	db := config.GetDB()
	cart, cartErr := services.GetOrCreateCart(c.Request.Context(), db, userID)
	if cartErr != nil {
		respondError(c, cartErr)
		return
	}

	if err := db.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to clear cart",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Cart cleared",
	})
}
