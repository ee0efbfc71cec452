package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
)

// CreateRoleRequest represents the request body for creating a role
type CreateRoleRequest struct {
	Name string `json:"name" binding:"required"`
}

// SetRolePermissionsRequest represents the request body for replacing a
// role's permission set
type SetRolePermissionsRequest struct {
	Keys []string `json:"keys" binding:"required"`
}

// AssignUserRoleRequest represents the request body for assigning a role to a
// user. A null role_id clears the assignment.
type AssignUserRoleRequest struct {
	RoleID *uint `json:"role_id"`
}

// ListRoles handles GET /api/v1/roles (requires roles.manage)
func ListRoles(c *gin.Context) {
	var roles []models.Role
	if err := config.GetDB().Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch roles",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    roles,
	})
}

// CreateRole handles POST /api/v1/roles (requires roles.manage)
func CreateRole(c *gin.Context) {
	var req CreateRoleRequest
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

	role := models.Role{Name: req.Name}
	if err := config.GetDB().Create(&role).Error; err != nil {
		errMsg := strings.ToLower(err.Error())
		if strings.Contains(errMsg, "duplicate") ||
			strings.Contains(errMsg, "unique constraint") ||
			strings.Contains(errMsg, "unique") {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ROLE_EXISTS",
					"message": "A role with this name already exists",
				},
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create role",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    role,
	})
}

// SetRolePermissions handles PUT /api/v1/roles/:id/permissions (requires
// roles.manage) - replaces the role's permission set with the given keys.
// Unknown keys are created on the fly.
func SetRolePermissions(c *gin.Context) {
	db := config.GetDB()
	var role models.Role
	if err := db.First(&role, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ROLE_NOT_FOUND",
				"message": "Role not found",
			},
		})
		return
	}

	var req SetRolePermissionsRequest
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

	permissions := make([]models.Permission, 0, len(req.Keys))
	for _, key := range req.Keys {
		key = strings.TrimSpace(key)
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Permission keys cannot be empty",
				},
			})
			return
		}

		var perm models.Permission
		if err := db.Where(models.Permission{Key: key}).FirstOrCreate(&perm).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "DATABASE_ERROR",
					"message": "Failed to resolve permission key",
				},
			})
			return
		}
		permissions = append(permissions, perm)
	}

	if err := db.Model(&role).Association("Permissions").Replace(permissions); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to update role permissions",
			},
		})
		return
	}

	services.InvalidateRolePermissions(c.Request.Context(), role.ID)

	if err := db.Preload("Permissions").First(&role, role.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to reload role",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    role,
	})
}

// AssignUserRole handles PUT /api/v1/users/:id/role (requires roles.manage)
func AssignUserRole(c *gin.Context) {
	db := config.GetDB()
	var target models.User
	if err := db.First(&target, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User not found",
			},
		})
		return
	}

	var req AssignUserRoleRequest
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

	if req.RoleID != nil {
		var role models.Role
		if err := db.First(&role, *req.RoleID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ROLE_NOT_FOUND",
					"message": "Role not found",
				},
			})
			return
		}
	}

	if err := db.Model(&target).Update("role_id", req.RoleID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to assign role",
			},
		})
		return
	}

	if err := db.Preload("Role.Permissions").First(&target, target.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to reload user",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    target,
	})
}
