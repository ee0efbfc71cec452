package services

import (
	"context"
	"testing"

	"github.com/lecube/cube-api/apperrors"
	"github.com/lecube/cube-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
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

	if err := EnsureDefaultSettings(db); err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	InitPermissionCache(nil, 0)
	SetOrderEvents(nil)

	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	dishAt := func(price string) models.Dish {
		return models.Dish{Price: d(price)}
	}

	tests := []struct {
		name        string
		lines       []models.CartLine
		discount    string
		deliveryFee string
		taxRate     string
		subtotal    string
		discountOut string
		tax         string
		total       string
	}{
		{
			name: "Two of the same dish with fee and VAT",
			lines: []models.CartLine{
				{Dish: dishAt("10.00"), Quantity: 2},
			},
			discount:    "0",
			deliveryFee: "2.00",
			taxRate:     "0.18",
			subtotal:    "20.00",
			discountOut: "0",
			tax:         "3.60",
			total:       "25.60",
		},
		{
			name: "Discount applies before tax",
			lines: []models.CartLine{
				{Dish: dishAt("10.00"), Quantity: 2},
			},
			discount:    "5.00",
			deliveryFee: "2.00",
			taxRate:     "0.18",
			subtotal:    "20.00",
			discountOut: "5.00",
			tax:         "2.70",
			total:       "19.70",
		},
		{
			name: "Discount larger than the subtotal clamps",
			lines: []models.CartLine{
				{Dish: dishAt("4.00"), Quantity: 1},
			},
			discount:    "100.00",
			deliveryFee: "2.00",
			taxRate:     "0.18",
			subtotal:    "4.00",
			discountOut: "4.00",
			tax:         "0.00",
			total:       "2.00",
		},
		{
			name: "Tax rounds half-up to two decimals",
			lines: []models.CartLine{
				{Dish: dishAt("1.25"), Quantity: 1},
			},
			discount:    "0",
			deliveryFee: "0",
			taxRate:     "0.18",
			subtotal:    "1.25",
			discountOut: "0",
			// 1.25 * 0.18 = 0.225 -> 0.23
			tax:   "0.23",
			total: "1.48",
		},
		{
			name: "Mixed lines sum up",
			lines: []models.CartLine{
				{Dish: dishAt("10.00"), Quantity: 1},
				{Dish: dishAt("3.50"), Quantity: 3},
			},
			discount:    "0",
			deliveryFee: "1.00",
			taxRate:     "0",
			subtotal:    "20.50",
			discountOut: "0",
			tax:         "0",
			total:       "21.50",
		},
		{
			name:        "Empty lines yield the fee only",
			lines:       nil,
			discount:    "0",
			deliveryFee: "2.00",
			taxRate:     "0.18",
			subtotal:    "0",
			discountOut: "0",
			tax:         "0",
			total:       "2.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := ComputeTotals(tt.lines, d(tt.discount), d(tt.deliveryFee), d(tt.taxRate))

			assert.True(t, d(tt.subtotal).Equal(totals.Subtotal), "subtotal: want %s got %s", tt.subtotal, totals.Subtotal)
			assert.True(t, d(tt.discountOut).Equal(totals.Discount), "discount: want %s got %s", tt.discountOut, totals.Discount)
			assert.True(t, d(tt.tax).Equal(totals.Tax), "tax: want %s got %s", tt.tax, totals.Tax)
			assert.True(t, d(tt.total).Equal(totals.Total), "total: want %s got %s", tt.total, totals.Total)
		})
	}
}

func TestGetOrCreateCart(t *testing.T) {
	db := setupServiceTestDB(t)
	ctx := context.Background()

	user := models.User{Phone: "+1", Email: "a@b.c", Name: "A", PasswordHash: "x"}
	db.Create(&user)

	first, err := GetOrCreateCart(ctx, db, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, first.UserID)

	second, err := GetOrCreateCart(ctx, db, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	t.Run("Losing the first-use race falls back to the winner's cart", func(t *testing.T) {
		other := models.User{Phone: "+12", Email: "r@b.c", Name: "R", PasswordHash: "x"}
		db.Create(&other)

		// Slip a competing cart insert in right before ours, as a concurrent
		// first request for the same user would
		raced := false
		err := db.Callback().Create().Before("gorm:create").Register("test:race_cart_create", func(tx *gorm.DB) {
			if raced || tx.Statement.Table != "carts" {
				return
			}
			raced = true
			tx.Session(&gorm.Session{NewDB: true}).
				Create(&models.Cart{UserID: other.ID, Discount: decimal.Zero})
		})
		assert.NoError(t, err)
		defer db.Callback().Create().Remove("test:race_cart_create")

		cart, err := GetOrCreateCart(ctx, db, other.ID)
		assert.NoError(t, err)
		assert.Equal(t, other.ID, cart.UserID)

		var count int64
		db.Model(&models.Cart{}).Where("user_id = ?", other.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})
}

func TestConvertCartToOrder(t *testing.T) {
	db := setupServiceTestDB(t)
	ctx := context.Background()

	user := models.User{Phone: "+2", Email: "b@b.c", Name: "B", PasswordHash: "x"}
	db.Create(&user)
	dish := models.Dish{
		Name: "Test Dish", Type: models.DishTypeBase, Price: d("10.00"),
		Category: "Mains", Status: models.DishStatusActive, Variations: models.VariationList{},
	}
	db.Create(&dish)
	db.Create(&models.DeliveryZone{Name: "Gombe", Fee: d("2.00")})

	input := CheckoutInput{Address: "1 Street", City: "Kinshasa", Commune: "Gombe"}

	t.Run("Empty cart is rejected", func(t *testing.T) {
		_, err := ConvertCartToOrder(ctx, db, user.ID, input)
		assert.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessRule))
	})

	t.Run("Conversion freezes prices and clears the cart", func(t *testing.T) {
		cart, err := GetOrCreateCart(ctx, db, user.ID)
		assert.NoError(t, err)
		db.Create(&models.CartLine{CartID: cart.ID, DishID: dish.ID, Quantity: 2})

		order, err := ConvertCartToOrder(ctx, db, user.ID, input)
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.True(t, d("25.60").Equal(order.Total), "total: got %s", order.Total)
		assert.Len(t, order.Lines, 1)
		assert.True(t, d("10.00").Equal(order.Lines[0].UnitPrice))

		// A later catalog price change must not touch the frozen line
		db.Model(&models.Dish{}).Where("id = ?", dish.ID).Update("price", d("99.00"))
		var line models.OrderLine
		db.First(&line, order.Lines[0].ID)
		assert.True(t, d("10.00").Equal(line.UnitPrice))

		var count int64
		db.Model(&models.CartLine{}).Where("cart_id = ?", cart.ID).Count(&count)
		assert.Equal(t, int64(0), count)

		var reloaded models.Cart
		db.First(&reloaded, cart.ID)
		assert.Equal(t, cart.Version+1, reloaded.Version)
	})

	t.Run("Unknown commune is rejected", func(t *testing.T) {
		cart, err := GetOrCreateCart(ctx, db, user.ID)
		assert.NoError(t, err)
		db.Create(&models.CartLine{CartID: cart.ID, DishID: dish.ID, Quantity: 1})

		_, err = ConvertCartToOrder(ctx, db, user.ID,
			CheckoutInput{Address: "1 Street", City: "Kinshasa", Commune: "Atlantis"})
		assert.Error(t, err)
		appErr := apperrors.As(err)
		assert.NotNil(t, appErr)
		assert.Equal(t, "UNKNOWN_DELIVERY_ZONE", appErr.Code)
	})

	t.Run("Concurrent conversion loses with a conflict", func(t *testing.T) {
		other := models.User{Phone: "+3", Email: "c@b.c", Name: "C", PasswordHash: "x"}
		db.Create(&other)

		cart, err := GetOrCreateCart(ctx, db, other.ID)
		assert.NoError(t, err)
		db.Create(&models.CartLine{CartID: cart.ID, DishID: dish.ID, Quantity: 1})

		// Sneak a competing version bump in right before the guarded update,
		// as a conversion racing on the same cart would
		raced := false
		err = db.Callback().Update().Before("gorm:update").Register("test:race_cart_version", func(tx *gorm.DB) {
			if raced || tx.Statement.Table != "carts" {
				return
			}
			raced = true
			tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE carts SET version = version + 1 WHERE id = ?", cart.ID)
		})
		assert.NoError(t, err)
		defer db.Callback().Update().Remove("test:race_cart_version")

		_, err = ConvertCartToOrder(ctx, db, other.ID, input)
		assert.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

		// The losing conversion must not have created an order
		var count int64
		db.Model(&models.Order{}).Where("user_id = ?", other.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})
}
