package testutil

import (
	"net/http"
	"testing"

	"github.com/lecube/cube-api/middleware"
	"github.com/lecube/cube-api/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestJWTSecret is the signing secret used by integration tests.
const TestJWTSecret = "integration-test-secret"

// CreateUser inserts a user with a real bcrypt hash so login flows work.
func CreateUser(t *testing.T, db *gorm.DB, phone, email, password string, roleID *uint) models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		Phone:        phone,
		Email:        email,
		Name:         "Integration User",
		PasswordHash: string(hash),
		RoleID:       roleID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

// CreateRole inserts a role carrying the given permission keys.
func CreateRole(t *testing.T, db *gorm.DB, name string, keys ...string) models.Role {
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
		t.Fatalf("Failed to create role: %v", err)
	}
	return role
}

// BearerToken issues a real signed token for the user.
func BearerToken(t *testing.T, userID uint) string {
	t.Helper()

	token, _, err := middleware.GenerateToken(userID, TestJWTSecret)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

// Authorize sets the Authorization header with a real token for the user.
func Authorize(t *testing.T, req *http.Request, userID uint) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+BearerToken(t, userID))
}
