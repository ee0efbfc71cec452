package testutil

import (
	"os"
	"testing"

	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// RequireTestEnvironment ensures that tests are running in the test
// environment. It fails the test immediately if GO_ENV is not "test", to
// prevent accidental runs against a development or production database.
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: tests must run with GO_ENV=test (current: %q)", env)
	}
}

// MustSetTestEnvironment sets GO_ENV=test. Use in TestMain or suite setup.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
}

// OpenTestDB opens an isolated in-memory database with the full schema
// migrated and the settings singleton seeded.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

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

	return db
}
