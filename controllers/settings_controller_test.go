package controllers

import (
	"net/http"
	"testing"

	"github.com/lecube/cube-api/config"
	"github.com/stretchr/testify/assert"
)

func TestGetSettings(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	router := setupTestRouter()
	router.GET("/settings", GetSettings)

	w, response := performJSON(t, router, http.MethodGet, "/settings", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Le Cube", data["name"])
	assert.Equal(t, true, data["airtel_money_enabled"])
	assertDecimal(t, "0.18", data["tax_rate"])
}

func TestUpdateSettings(t *testing.T) {
	db := setupTestDB(t)
	config.SetDB(db)

	t.Run("Successfully patch a payment mode flag", func(t *testing.T) {
		router := setupTestRouter()
		router.PATCH("/settings", UpdateSettings)

		w, response := performJSON(t, router, http.MethodPatch, "/settings",
			map[string]interface{}{"cash_on_delivery_enabled": false})

		assert.Equal(t, http.StatusOK, w.Code)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, false, data["cash_on_delivery_enabled"])
		// Untouched fields survive
		assert.Equal(t, "Le Cube", data["name"])
	})

	t.Run("Successfully patch name and tax rate", func(t *testing.T) {
		router := setupTestRouter()
		router.PATCH("/settings", UpdateSettings)

		w, response := performJSON(t, router, http.MethodPatch, "/settings",
			map[string]interface{}{"name": "Le Cube Kinshasa", "tax_rate": "0.16"})

		assert.Equal(t, http.StatusOK, w.Code)
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "Le Cube Kinshasa", data["name"])
		assertDecimal(t, "0.16", data["tax_rate"])
	})

	t.Run("Empty patch is a no-op", func(t *testing.T) {
		router := setupTestRouter()
		router.PATCH("/settings", UpdateSettings)

		w, response := performJSON(t, router, http.MethodPatch, "/settings",
			map[string]interface{}{})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, response["success"].(bool))
	})

	t.Run("Fail with negative tax rate", func(t *testing.T) {
		router := setupTestRouter()
		router.PATCH("/settings", UpdateSettings)

		w, response := performJSON(t, router, http.MethodPatch, "/settings",
			map[string]interface{}{"tax_rate": "-0.10"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(response))
	})
}
