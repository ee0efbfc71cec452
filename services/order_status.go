package services

import (
	"context"
	"time"

	"github.com/lecube/cube-api/apperrors"
	"github.com/lecube/cube-api/models"
	"gorm.io/gorm"
)

// nextStatus is the forward-only happy path. Skipping a state or moving
// backward is rejected; cancellation is handled separately.
var nextStatus = map[string]string{
	models.OrderStatusPending:        models.OrderStatusConfirmed,
	models.OrderStatusConfirmed:      models.OrderStatusInPreparation,
	models.OrderStatusInPreparation:  models.OrderStatusOutForDelivery,
	models.OrderStatusOutForDelivery: models.OrderStatusDelivered,
}

// TransitionPermission maps each reachable status to the permission key
// required to move an order into it.
var TransitionPermission = map[string]string{
	models.OrderStatusConfirmed:      "orders.confirmation.update",
	models.OrderStatusInPreparation:  "orders.preparation.update",
	models.OrderStatusOutForDelivery: "orders.delivery.update",
	models.OrderStatusDelivered:      "orders.delivery.update",
}

// milestoneColumn is the timestamp column stamped when an order enters a
// status. Each is written exactly once because every status is entered at
// most once.
var milestoneColumn = map[string]string{
	models.OrderStatusConfirmed:      "confirmed_at",
	models.OrderStatusInPreparation:  "preparing_at",
	models.OrderStatusOutForDelivery: "out_for_delivery_at",
	models.OrderStatusDelivered:      "delivered_at",
	models.OrderStatusCancelled:      "cancelled_at",
}

// ValidateTransition checks that to is the direct successor of from.
// Re-entering the current status is rejected as well.
func ValidateTransition(from, to string) error {
	if _, known := milestoneColumn[to]; !known || to == models.OrderStatusCancelled {
		return apperrors.Validation("INVALID_STATUS", "Unknown target order status")
	}
	if from == to {
		return apperrors.Conflict("ORDER_STATUS_CONFLICT", "Order is already in status "+to)
	}
	if nextStatus[from] != to {
		return apperrors.Conflict("ORDER_STATUS_CONFLICT",
			"Cannot move order from "+from+" to "+to)
	}
	return nil
}

// ValidateCancellation checks that the order can still be cancelled. Once the
// kitchen has committed resources (in_preparation and later) cancellation is
// rejected.
func ValidateCancellation(from string) error {
	switch from {
	case models.OrderStatusPending, models.OrderStatusConfirmed:
		return nil
	case models.OrderStatusCancelled:
		return apperrors.Conflict("ORDER_STATUS_CONFLICT", "Order is already cancelled")
	default:
		return apperrors.BusinessRule("CANCELLATION_REJECTED",
			"Order can no longer be cancelled once preparation has started")
	}
}

// UpdateOrderStatus advances an order one step along the happy path. The
// write is guarded by the previously observed status so that of two
// concurrent transitions exactly one commits; the loser gets a conflict.
func UpdateOrderStatus(ctx context.Context, db *gorm.DB, orderID uint, target string) (*models.Order, error) {
	ctx, cancel := boundedContext(ctx)
	defer cancel()

	var order models.Order
	if err := db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, apperrors.Unavailable("Failed to load order", err)
	}

	if err := ValidateTransition(order.Status, target); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":                target,
		milestoneColumn[target]: now,
	}

	err := withRetry(func() error {
		res := db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, order.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("ORDER_STATUS_CONFLICT",
				"Order status changed concurrently, reload and retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	PublishOrderStatus(ctx, orderID, target, now)

	if err := db.WithContext(ctx).Preload("Lines.Dish").Preload("User").First(&order, orderID).Error; err != nil {
		return nil, apperrors.Unavailable("Failed to reload order", err)
	}
	return &order, nil
}

// CancelOrder moves an order to the terminal cancelled status. Frozen line
// prices and the delivery fee are left untouched.
func CancelOrder(ctx context.Context, db *gorm.DB, orderID uint) (*models.Order, error) {
	ctx, cancel := boundedContext(ctx)
	defer cancel()

	var order models.Order
	if err := db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, apperrors.Unavailable("Failed to load order", err)
	}

	if err := ValidateCancellation(order.Status); err != nil {
		return nil, err
	}

	now := time.Now()
	err := withRetry(func() error {
		res := db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status IN ?", orderID,
				[]string{models.OrderStatusPending, models.OrderStatusConfirmed}).
			Updates(map[string]interface{}{
				"status":       models.OrderStatusCancelled,
				"cancelled_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("ORDER_STATUS_CONFLICT",
				"Order status changed concurrently, reload and retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	PublishOrderStatus(ctx, orderID, models.OrderStatusCancelled, now)

	if err := db.WithContext(ctx).Preload("Lines.Dish").Preload("User").First(&order, orderID).Error; err != nil {
		return nil, apperrors.Unavailable("Failed to reload order", err)
	}
	return &order, nil
}
