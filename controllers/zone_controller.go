package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/shopspring/decimal"
)

// CreateZoneRequest represents the request body for creating a delivery zone
type CreateZoneRequest struct {
	Name string          `json:"name" binding:"required"`
	Fee  decimal.Decimal `json:"fee" binding:"required"`
}

// UpdateZoneRequest represents the request body for updating a delivery zone
type UpdateZoneRequest struct {
	Name *string          `json:"name"`
	Fee  *decimal.Decimal `json:"fee"`
}

// ListZones handles GET /api/v1/zones - public list of deliverable communes
// and their fees
func ListZones(c *gin.Context) {
	var zones []models.DeliveryZone
	if err := config.GetDB().Order("name ASC").Find(&zones).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch delivery zones",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    zones,
	})
}

// CreateZone handles POST /api/v1/zones (requires zones.manage)
func CreateZone(c *gin.Context) {
	var req CreateZoneRequest
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

	if req.Fee.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Delivery fee cannot be negative",
			},
		})
		return
	}

	zone := models.DeliveryZone{Name: req.Name, Fee: req.Fee}
	if err := config.GetDB().Create(&zone).Error; err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ZONE_EXISTS",
					"message": "A delivery zone with this name already exists",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create delivery zone",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    zone,
	})
}

// UpdateZone handles PATCH /api/v1/zones/:id (requires zones.manage)
func UpdateZone(c *gin.Context) {
	db := config.GetDB()
	var zone models.DeliveryZone
	if err := db.First(&zone, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ZONE_NOT_FOUND",
				"message": "Delivery zone not found",
			},
		})
		return
	}

	var req UpdateZoneRequest
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

	if req.Fee != nil && req.Fee.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Delivery fee cannot be negative",
			},
		})
		return
	}

	if req.Name != nil {
		zone.Name = *req.Name
	}
	if req.Fee != nil {
		zone.Fee = *req.Fee
	}

	if err := db.Save(&zone).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update delivery zone",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    zone,
	})
}

// DeleteZone handles DELETE /api/v1/zones/:id (requires zones.manage)
func DeleteZone(c *gin.Context) {
	db := config.GetDB()
	res := db.Delete(&models.DeliveryZone{}, c.Param("id"))
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete delivery zone",
			},
		})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ZONE_NOT_FOUND",
				"message": "Delivery zone not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Delivery zone deleted",
	})
}
