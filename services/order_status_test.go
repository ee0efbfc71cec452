package services

import (
	"context"
	"testing"

	"github.com/lecube/cube-api/apperrors"
	"github.com/lecube/cube-api/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		wantKind apperrors.Kind
		wantErr  bool
	}{
		{name: "pending to confirmed", from: "pending", to: "confirmed"},
		{name: "confirmed to in_preparation", from: "confirmed", to: "in_preparation"},
		{name: "in_preparation to out_for_delivery", from: "in_preparation", to: "out_for_delivery"},
		{name: "out_for_delivery to delivered", from: "out_for_delivery", to: "delivered"},
		{
			name: "skipping a state is rejected",
			from: "pending", to: "in_preparation",
			wantErr: true, wantKind: apperrors.KindConflict,
		},
		{
			name: "moving backward is rejected",
			from: "in_preparation", to: "confirmed",
			wantErr: true, wantKind: apperrors.KindConflict,
		},
		{
			name: "re-entering the current state is rejected",
			from: "confirmed", to: "confirmed",
			wantErr: true, wantKind: apperrors.KindConflict,
		},
		{
			name: "leaving a terminal state is rejected",
			from: "delivered", to: "confirmed",
			wantErr: true, wantKind: apperrors.KindConflict,
		},
		{
			name: "unknown target is invalid",
			from: "pending", to: "teleported",
			wantErr: true, wantKind: apperrors.KindValidation,
		},
		{
			name: "cancelled is not reachable via transition",
			from: "pending", to: "cancelled",
			wantErr: true, wantKind: apperrors.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, apperrors.IsKind(err, tt.wantKind))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCancellation(t *testing.T) {
	assert.NoError(t, ValidateCancellation(models.OrderStatusPending))
	assert.NoError(t, ValidateCancellation(models.OrderStatusConfirmed))

	err := ValidateCancellation(models.OrderStatusInPreparation)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessRule))

	err = ValidateCancellation(models.OrderStatusOutForDelivery)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessRule))

	err = ValidateCancellation(models.OrderStatusDelivered)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessRule))

	err = ValidateCancellation(models.OrderStatusCancelled)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestUpdateOrderStatus(t *testing.T) {
	db := setupServiceTestDB(t)
	ctx := context.Background()

	user := models.User{Phone: "+10", Email: "s@b.c", Name: "S", PasswordHash: "x"}
	db.Create(&user)

	newOrder := func(status string) models.Order {
		order := models.Order{
			UserID: user.ID, Address: "X", City: "Kinshasa", Commune: "Gombe",
			Status: status,
		}
		db.Create(&order)
		return order
	}

	t.Run("Walks the full happy path stamping each milestone", func(t *testing.T) {
		order := newOrder(models.OrderStatusPending)

		updated, err := UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusConfirmed)
		assert.NoError(t, err)
		assert.NotNil(t, updated.ConfirmedAt)

		updated, err = UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusInPreparation)
		assert.NoError(t, err)
		assert.NotNil(t, updated.PreparingAt)

		updated, err = UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusOutForDelivery)
		assert.NoError(t, err)
		assert.NotNil(t, updated.OutForDeliveryAt)

		updated, err = UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusDelivered)
		assert.NoError(t, err)
		assert.NotNil(t, updated.DeliveredAt)

		// Earlier milestones survive later transitions
		assert.NotNil(t, updated.ConfirmedAt)
		assert.NotNil(t, updated.PreparingAt)
		assert.NotNil(t, updated.OutForDeliveryAt)
	})

	t.Run("Unknown order yields not found", func(t *testing.T) {
		_, err := UpdateOrderStatus(ctx, db, 99999, models.OrderStatusConfirmed)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("Concurrent transition loses with a conflict", func(t *testing.T) {
		order := newOrder(models.OrderStatusPending)

		// Slip a competing transition in right before the guarded update
		raced := false
		err := db.Callback().Update().Before("gorm:update").Register("test:race_order_status", func(tx *gorm.DB) {
			if raced || tx.Statement.Table != "orders" {
				return
			}
			raced = true
			tx.Session(&gorm.Session{NewDB: true}).
				Exec("UPDATE orders SET status = ? WHERE id = ?", models.OrderStatusConfirmed, order.ID)
		})
		assert.NoError(t, err)
		defer db.Callback().Update().Remove("test:race_order_status")

		_, err = UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusConfirmed)
		assert.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	})
}

func TestCancelOrderService(t *testing.T) {
	db := setupServiceTestDB(t)
	ctx := context.Background()

	user := models.User{Phone: "+11", Email: "t@b.c", Name: "T", PasswordHash: "x"}
	db.Create(&user)

	newOrder := func(status string) models.Order {
		order := models.Order{
			UserID: user.ID, Address: "Y", City: "Kinshasa", Commune: "Gombe",
			Status: status,
		}
		db.Create(&order)
		return order
	}

	t.Run("Cancels a pending order", func(t *testing.T) {
		order := newOrder(models.OrderStatusPending)

		cancelled, err := CancelOrder(ctx, db, order.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
	})

	t.Run("Cancels a confirmed order", func(t *testing.T) {
		order := newOrder(models.OrderStatusConfirmed)

		cancelled, err := CancelOrder(ctx, db, order.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	})

	t.Run("Cancellation leaves the frozen amounts untouched", func(t *testing.T) {
		dish := models.Dish{
			Name: "Frozen Price Dish", Type: models.DishTypeBase, Price: d("10.00"),
			Category: "Mains", Status: models.DishStatusActive, Variations: models.VariationList{},
		}
		db.Create(&dish)

		order := models.Order{
			UserID: user.ID, Address: "Z", City: "Kinshasa", Commune: "Gombe",
			Status:   models.OrderStatusPending,
			Subtotal: d("20.00"), DeliveryFee: d("2.00"), Tax: d("3.60"), Total: d("25.60"),
			Lines: []models.OrderLine{
				{DishID: dish.ID, Quantity: 2, UnitPrice: d("10.00")},
			},
		}
		db.Create(&order)

		cancelled, err := CancelOrder(ctx, db, order.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
		assert.True(t, d("20.00").Equal(cancelled.Subtotal), "subtotal: got %s", cancelled.Subtotal)
		assert.True(t, d("2.00").Equal(cancelled.DeliveryFee), "delivery fee: got %s", cancelled.DeliveryFee)
		assert.True(t, d("3.60").Equal(cancelled.Tax), "tax: got %s", cancelled.Tax)
		assert.True(t, d("25.60").Equal(cancelled.Total), "total: got %s", cancelled.Total)
		assert.Len(t, cancelled.Lines, 1)
		assert.True(t, d("10.00").Equal(cancelled.Lines[0].UnitPrice), "unit price: got %s", cancelled.Lines[0].UnitPrice)
	})

	t.Run("Rejects cancellation once preparation started", func(t *testing.T) {
		order := newOrder(models.OrderStatusInPreparation)

		_, err := CancelOrder(ctx, db, order.ID)
		assert.True(t, apperrors.IsKind(err, apperrors.KindBusinessRule))
	})

	t.Run("Rejects cancelling twice", func(t *testing.T) {
		order := newOrder(models.OrderStatusCancelled)

		_, err := CancelOrder(ctx, db, order.ID)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	})
}
