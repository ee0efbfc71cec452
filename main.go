package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lecube/cube-api/config"
	"github.com/lecube/cube-api/controllers"
	"github.com/lecube/cube-api/middleware"
	"github.com/lecube/cube-api/models"
	"github.com/lecube/cube-api/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Basic logging
	log.Println("Starting Le Cube API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
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
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Seed the settings singleton so the storefront always has a row to read
	if err := services.EnsureDefaultSettings(db); err != nil {
		log.Fatalf("Failed to seed restaurant settings: %v", err)
	}

	// Initialize S3 service for dish images
	if cfg.AWSS3Bucket != "" {
		if _, err := services.InitS3Service(); err != nil {
			log.Fatalf("Failed to initialize S3 service: %v", err)
		}
		log.Println("S3 service initialized")
	} else {
		log.Println("AWS_S3_BUCKET not set, dish image uploads disabled")
	}

	// Initialize the order status event stream (no-op when unconfigured)
	services.InitOrderEvents(cfg.KafkaBroker, cfg.KafkaTopic)

	// Initialize the role permission cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse REDIS_URL: %v", err)
		}
		services.InitPermissionCache(redis.NewClient(opts), 5*time.Minute)
		log.Println("Permission cache initialized")
	} else {
		log.Println("REDIS_URL not set, permission checks go straight to the database")
	}

	// Initialize Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		// Public auth routes
		v1.POST("/auth/register", controllers.Register)
		v1.POST("/auth/login", controllers.Login)

		// Public storefront routes
		v1.GET("/dishes", controllers.ListDishes)
		v1.GET("/dishes/categories", controllers.ListDishCategories)
		v1.GET("/dishes/:id", controllers.GetDish)
		v1.GET("/zones", controllers.ListZones)
		v1.GET("/settings", controllers.GetSettings)

		// Authenticated routes
		auth := v1.Group("")
		auth.Use(middleware.RequireAuth())
		{
			auth.GET("/auth/profile", controllers.GetProfile)

			// Cart
			auth.GET("/cart", controllers.GetCart)
			auth.DELETE("/cart", controllers.ClearCart)
			auth.POST("/cart/items", controllers.AddCartItem)
			auth.PATCH("/cart/items/:id", controllers.UpdateCartItem)
			auth.DELETE("/cart/items/:id", controllers.RemoveCartItem)
			auth.POST("/cart/promo", controllers.ApplyPromo)

			// Orders
			auth.POST("/orders", controllers.CreateOrder)
			auth.GET("/orders", controllers.ListOrders)
			auth.GET("/orders/:id", controllers.GetOrder)
			auth.GET("/orders/:id/track", controllers.TrackOrder)
			auth.PUT("/orders/:id/status", controllers.UpdateOrderStatus)
			auth.PUT("/orders/:id/cancel", controllers.CancelOrder)
			auth.PUT("/orders/:id/courier-position",
				middleware.RequirePermission("orders.delivery.update"),
				controllers.UpdateCourierPosition)

			// Payments
			auth.POST("/orders/:id/payment", controllers.CreatePayment)
			auth.PUT("/payments/:id/confirm",
				middleware.RequirePermission("payments.confirm"),
				controllers.ConfirmPayment)
			auth.PUT("/payments/:id/fail",
				middleware.RequirePermission("payments.confirm"),
				controllers.FailPayment)

			// Catalog management
			auth.POST("/dishes",
				middleware.RequirePermission("dishes.manage"),
				controllers.CreateDish)
			auth.PATCH("/dishes/:id",
				middleware.RequirePermission("dishes.manage"),
				controllers.UpdateDish)
			auth.DELETE("/dishes/:id",
				middleware.RequirePermission("dishes.manage"),
				controllers.DeleteDish)
			auth.POST("/dishes/:id/image",
				middleware.RequirePermission("dishes.manage"),
				controllers.UploadDishImage)

			// Delivery zones
			auth.POST("/zones",
				middleware.RequirePermission("zones.manage"),
				controllers.CreateZone)
			auth.PATCH("/zones/:id",
				middleware.RequirePermission("zones.manage"),
				controllers.UpdateZone)
			auth.DELETE("/zones/:id",
				middleware.RequirePermission("zones.manage"),
				controllers.DeleteZone)

			// Settings
			auth.PATCH("/settings",
				middleware.RequirePermission("settings.manage"),
				controllers.UpdateSettings)

			// Roles and permissions
			auth.GET("/roles",
				middleware.RequirePermission("roles.manage"),
				controllers.ListRoles)
			auth.POST("/roles",
				middleware.RequirePermission("roles.manage"),
				controllers.CreateRole)
			auth.PUT("/roles/:id/permissions",
				middleware.RequirePermission("roles.manage"),
				controllers.SetRolePermissions)
			auth.PUT("/users/:id/role",
				middleware.RequirePermission("roles.manage"),
				controllers.AssignUserRole)
		}
	}

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Le Cube API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Get list of tables
	var tables []string
	if err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
