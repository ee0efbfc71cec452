package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/lecube/cube-api/utils"
	"github.com/shopspring/decimal"
)

// CreateDishRequest represents the request body for creating a dish
type CreateDishRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Type        string                 `json:"type" binding:"omitempty,oneof=menu base side extra"`
	Price       decimal.Decimal        `json:"price" binding:"required"`
	Category    string                 `json:"category" binding:"required"`
	Status      string                 `json:"status" binding:"omitempty,oneof=active inactive out_of_stock"`
	Variations  []models.Variation     `json:"variations"`
}

// UpdateDishRequest represents the request body for partially updating a dish
type UpdateDishRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Type        *string             `json:"type" binding:"omitempty,oneof=menu base side extra"`
	Price       *decimal.Decimal    `json:"price"`
	Category    *string             `json:"category"`
	Status      *string             `json:"status" binding:"omitempty,oneof=active inactive out_of_stock"`
	Variations  *[]models.Variation `json:"variations"`
}

// attachImageURL fills the computed presigned URL when the dish has an image.
func attachImageURL(dish *models.Dish) {
	if dish.ImageS3Key == nil || *dish.ImageS3Key == "" {
		return
	}
	s3Service := services.GetS3Service()
	if s3Service == nil {
		return
	}
	url, err := s3Service.GetPresignedURL(*dish.ImageS3Key)
	if err != nil {
		log.Printf("warning: failed to presign dish image %s: %v", *dish.ImageS3Key, err)
		return
	}
	dish.ImageURL = &url
}

// ListDishes handles GET /api/v1/dishes - public catalog listing with
// optional category and status filters
func ListDishes(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	db := config.GetDB()
	query := db.Model(&models.Dish{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
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
				"message": "Failed to count dishes",
			},
		})
		return
	}

	var dishes []models.Dish
	if err := query.Order("name ASC").Offset((page - 1) * limit).Limit(limit).Find(&dishes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch dishes",
			},
		})
		return
	}

	for i := range dishes {
		attachImageURL(&dishes[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dishes,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + int64(limit) - 1) / int64(limit),
		},
	})
}

// GetDish handles GET /api/v1/dishes/:id - public dish detail
func GetDish(c *gin.Context) {
	db := config.GetDB()
	var dish models.Dish
	if err := db.First(&dish, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_NOT_FOUND",
				"message": "Dish not found",
			},
		})
		return
	}

	attachImageURL(&dish)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dish,
	})
}

// ListDishCategories handles GET /api/v1/dishes/categories - the distinct
// category names currently in the catalog
func ListDishCategories(c *gin.Context) {
	db := config.GetDB()
	var categories []string
	if err := db.Model(&models.Dish{}).Distinct("category").Order("category ASC").
		Pluck("category", &categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch categories",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    categories,
	})
}

// CreateDish handles POST /api/v1/dishes - creates a dish (requires
// dishes.manage)
func CreateDish(c *gin.Context) {
	var req CreateDishRequest
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

	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Price cannot be negative",
			},
		})
		return
	}

	dish := models.Dish{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Price:       req.Price,
		Category:    req.Category,
		Status:      req.Status,
		Variations:  req.Variations,
	}
	if dish.Type == "" {
		dish.Type = models.DishTypeBase
	}
	if dish.Status == "" {
		dish.Status = models.DishStatusActive
	}
	if dish.Variations == nil {
		dish.Variations = models.VariationList{}
	}

	db := config.GetDB()
	if err := db.Create(&dish).Error; err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DISH_EXISTS",
					"message": "A dish with this name already exists",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create dish",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    dish,
	})
}

// UpdateDish handles PATCH /api/v1/dishes/:id - partially updates a dish
// (requires dishes.manage)
func UpdateDish(c *gin.Context) {
	db := config.GetDB()
	var dish models.Dish
	if err := db.First(&dish, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_NOT_FOUND",
				"message": "Dish not found",
			},
		})
		return
	}

	var req UpdateDishRequest
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

	if req.Price != nil && req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Price cannot be negative",
			},
		})
		return
	}

	if req.Name != nil {
		dish.Name = *req.Name
	}
	if req.Description != nil {
		dish.Description = *req.Description
	}
	if req.Type != nil {
		dish.Type = *req.Type
	}
	if req.Price != nil {
		dish.Price = *req.Price
	}
	if req.Category != nil {
		dish.Category = *req.Category
	}
	if req.Status != nil {
		dish.Status = *req.Status
	}
	if req.Variations != nil {
		dish.Variations = *req.Variations
	}

	if err := db.Save(&dish).Error; err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DISH_EXISTS",
					"message": "A dish with this name already exists",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update dish",
			},
		})
		return
	}

	attachImageURL(&dish)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dish,
	})
}

// DeleteDish handles DELETE /api/v1/dishes/:id - removes a dish from the
// catalog (requires dishes.manage). A dish referenced by any order line is
// protected and cannot be deleted.
func DeleteDish(c *gin.Context) {
	db := config.GetDB()
	var dish models.Dish
	if err := db.First(&dish, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_NOT_FOUND",
				"message": "Dish not found",
			},
		})
		return
	}

	var references int64
	if err := db.Model(&models.OrderLine{}).Where("dish_id = ?", dish.ID).Count(&references).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to check dish references",
			},
		})
		return
	}
	if references > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_IN_USE",
				"message": "Dish is referenced by existing orders and cannot be deleted",
			},
		})
		return
	}

	if err := db.Delete(&dish).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete dish",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Dish deleted",
	})
}

// UploadDishImage handles POST /api/v1/dishes/:id/image - stores a dish
// image in S3 and saves its key (requires dishes.manage)
func UploadDishImage(c *gin.Context) {
	db := config.GetDB()
	var dish models.Dish
	if err := db.First(&dish, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DISH_NOT_FOUND",
				"message": "Dish not found",
			},
		})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "An image file is required",
			},
		})
		return
	}

	if err := utils.ValidateImageFile(fileHeader); err != nil {
		fileErr := err.(*utils.ImageFileError)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    fileErr.Code,
				"message": fileErr.Message,
			},
		})
		return
	}

	s3Service := services.GetS3Service()
	if s3Service == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_UNAVAILABLE",
				"message": "Image storage is not configured",
			},
		})
		return
	}

	s3Key, err := s3Service.UploadFile(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_ERROR",
				"message": "Failed to upload image",
			},
		})
		return
	}

	// Replace any previous image
	if dish.ImageS3Key != nil && *dish.ImageS3Key != "" {
		if err := s3Service.DeleteFile(*dish.ImageS3Key); err != nil {
			log.Printf("warning: failed to delete previous dish image %s: %v", *dish.ImageS3Key, err)
		}
	}

	if err := db.Model(&dish).Update("image_s3_key", s3Key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to save image reference",
			},
		})
		return
	}

	dish.ImageS3Key = &s3Key
	attachImageURL(&dish)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dish,
	})
}
