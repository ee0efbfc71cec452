package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Auto-migrate all models
	if err := db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.User{},
		&models.Dish{},
		&models.Cart{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderLine{},
		&models.Payment{},
		&models.DeliveryZone{},
		&models.RestaurantSettings{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	if err := services.EnsureDefaultSettings(db); err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	// No Redis and no Kafka in unit tests
	services.InitPermissionCache(nil, 0)
	services.SetOrderEvents(nil)

	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

// mockAuthMiddleware simulates RequireAuth for testing. It sets up the context
// exactly as the real middleware does after token validation.
func mockAuthMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

// createTestUser inserts a user, optionally attached to a role.
func createTestUser(t *testing.T, db *gorm.DB, phone, email string, roleID *uint) models.User {
	t.Helper()

	user := models.User{
		Phone:        phone,
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		RoleID:       roleID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createTestRole inserts a role carrying the given permission keys.
func createTestRole(t *testing.T, db *gorm.DB, name string, keys ...string) models.Role {
	t.Helper()

	role := models.Role{Name: name}
	for _, key := range keys {
		var perm models.Permission
		if err := db.Where(models.Permission{Key: key}).FirstOrCreate(&perm).Error; err != nil {
			t.Fatalf("Failed to create permission %s: %v", key, err)
		}
		role.Permissions = append(role.Permissions, perm)
	}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("Failed to create test role: %v", err)
	}
	return role
}

// createTestDish inserts an active dish priced at the given amount.
func createTestDish(t *testing.T, db *gorm.DB, name, price string) models.Dish {
	t.Helper()

	dish := models.Dish{
		Name:       name,
		Type:       models.DishTypeBase,
		Price:      decimal.RequireFromString(price),
		Category:   "Mains",
		Status:     models.DishStatusActive,
		Variations: models.VariationList{},
	}
	if err := db.Create(&dish).Error; err != nil {
		t.Fatalf("Failed to create test dish: %v", err)
	}
	return dish
}

// createTestZone inserts a delivery zone with the given fee.
func createTestZone(t *testing.T, db *gorm.DB, name, fee string) models.DeliveryZone {
	t.Helper()

	zone := models.DeliveryZone{Name: name, Fee: decimal.RequireFromString(fee)}
	if err := db.Create(&zone).Error; err != nil {
		t.Fatalf("Failed to create test zone: %v", err)
	}
	return zone
}

// performJSON sends a JSON request through the router and decodes the
// response envelope.
func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response body: %v", err)
	}

	return w, response
}

// errorCode extracts error.code from the response envelope.
func errorCode(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}
