package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/apperrors"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/middleware"
	"github.com/lecube/cube-api/models"
)

// statusForKind maps the error taxonomy to stable HTTP status codes.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindPermissionDenied:
		return http.StatusForbidden
	case apperrors.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case apperrors.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the standard error envelope for an application error.
func respondError(c *gin.Context, err error) {
	if appErr := apperrors.As(err); appErr != nil {
		c.JSON(statusForKind(appErr.Kind), gin.H{
			"success": false,
			"error": gin.H{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		},
	})
}

// currentUser loads the authenticated user with role and permissions. On
// failure it writes the error envelope and returns false.
func currentUser(c *gin.Context) (*models.User, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UNAUTHORIZED",
				"message": "Could not extract user information",
			},
		})
		return nil, false
	}

	db := config.GetDB()
	var user models.User
	if err := db.Preload("Role.Permissions").First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "USER_NOT_FOUND",
				"message": "User profile not found",
			},
		})
		return nil, false
	}

	return &user, true
}
