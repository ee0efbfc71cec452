package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func setupAuthTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	config.SetConfig(&config.Config{JWTSecret: testSecret, GoEnv: "test"})

	router := gin.New()
	router.GET("/protected", RequireAuth(), func(c *gin.Context) {
		userID, err := GetUserID(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user_id": userID})
	})
	return router
}

func TestGenerateToken(t *testing.T) {
	token, expiresAt, err := GenerateToken(42, testSecret)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), expiresAt, time.Minute)

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	assert.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, uint(42), claims.UserID)
}

func TestRequireAuth(t *testing.T) {
	router := setupAuthTestRouter()

	validToken, _, err := GenerateToken(7, testSecret)
	assert.NoError(t, err)

	expiredClaims := Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).
		SignedString([]byte(testSecret))
	assert.NoError(t, err)

	wrongKeyToken, _, err := GenerateToken(7, "some-other-secret")
	assert.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{name: "Valid token", authHeader: "Bearer " + validToken, expectedStatus: http.StatusOK},
		{name: "Missing header", authHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "Not a bearer token", authHeader: "Basic abc123", expectedStatus: http.StatusUnauthorized},
		{name: "Garbage token", authHeader: "Bearer not.a.jwt", expectedStatus: http.StatusUnauthorized},
		{name: "Expired token", authHeader: "Bearer " + expiredToken, expectedStatus: http.StatusUnauthorized},
		{name: "Token signed with a different key", authHeader: "Bearer " + wrongKeyToken, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRequireAuthRejectsUnsignedToken(t *testing.T) {
	router := setupAuthTestRouter()

	// alg=none tokens must never pass
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+unsigned)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Permission{}, &models.Role{}, &models.User{}))
	config.SetDB(db)
	services.InitPermissionCache(nil, 0)

	role := models.Role{
		Name:        "admin",
		Permissions: []models.Permission{{Key: "zones.manage"}},
	}
	db.Create(&role)
	admin := models.User{Phone: "+30", Email: "m1@b.c", Name: "M1", PasswordHash: "x", RoleID: &role.ID}
	db.Create(&admin)
	plain := models.User{Phone: "+31", Email: "m2@b.c", Name: "M2", PasswordHash: "x"}
	db.Create(&plain)

	newRouter := func(userID uint) *gin.Engine {
		router := gin.New()
		router.GET("/gated", func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		}, RequirePermission("zones.manage"), func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"success": true})
		})
		return router
	}

	t.Run("Holder of the key passes", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/gated", nil)
		w := httptest.NewRecorder()
		newRouter(admin.ID).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("User without the key is rejected", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/gated", nil)
		w := httptest.NewRecorder()
		newRouter(plain.ID).ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Unknown user is rejected, fail closed", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/gated", nil)
		w := httptest.NewRecorder()
		newRouter(99999).ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Returns the stored user id", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", uint(9))

		id, err := GetUserID(c)
		assert.NoError(t, err)
		assert.Equal(t, uint(9), id)
	})

	t.Run("Fails when unset", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		_, err := GetUserID(c)
		assert.Error(t, err)
	})

	t.Run("Fails on a wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", "9")

		_, err := GetUserID(c)
		assert.Error(t, err)
	})
}
