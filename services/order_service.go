package services

import (
	"context"
	"errors"
	"strings"

	"github.com/lecube/cube-api/apperrors"
	"github.com/lecube/cube-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutInput carries the delivery details of a cart-to-order conversion.
type CheckoutInput struct {
	Address      string
	City         string
	Commune      string
	Instructions *string
}

// OrderTotals is the financial summary computed at checkout.
type OrderTotals struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals derives the order summary from the cart lines. The discount
// is subtracted from the raw subtotal before tax and clamps at zero; tax is
// rounded half-up to 2 decimal places. Line prices are read from the dish at
// this moment and are frozen by the caller.
func ComputeTotals(lines []models.CartLine, discount, deliveryFee, taxRate decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Dish.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Round(2)
	total := taxable.Add(deliveryFee).Add(tax)

	return OrderTotals{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: deliveryFee,
		Tax:         tax,
		Total:       total,
	}
}

// GetOrCreateCart returns the user's cart, creating it lazily on first use.
// Two concurrent first requests race the unique user_id index; the loser
// falls back to the cart the winner created.
func GetOrCreateCart(ctx context.Context, db *gorm.DB, userID uint) (*models.Cart, error) {
	ctx, cancel := boundedContext(ctx)
	defer cancel()

	var cart models.Cart
	err := db.WithContext(ctx).
		Where(models.Cart{UserID: userID}).
		Attrs(models.Cart{Discount: decimal.Zero}).
		FirstOrCreate(&cart).Error
	if err != nil && isDuplicateKey(err) {
		err = db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	}
	if err != nil {
		return nil, apperrors.Unavailable("Failed to load cart", err)
	}

	if err := db.WithContext(ctx).Preload("Items.Dish").First(&cart, cart.ID).Error; err != nil {
		return nil, apperrors.Unavailable("Failed to load cart items", err)
	}
	return &cart, nil
}

// ConvertCartToOrder turns the user's cart into an order in one atomic
// transaction: the order and its lines are created with prices frozen at this
// moment, then the cart lines are cleared and its promo reset. A version
// guard on the cart row makes sure that of two concurrent conversions exactly
// one commits.
func ConvertCartToOrder(ctx context.Context, db *gorm.DB, userID uint, in CheckoutInput) (*models.Order, error) {
	ctx, cancel := boundedContext(ctx)
	defer cancel()

	cart, err := GetOrCreateCart(ctx, db, userID)
	if err != nil {
		return nil, err
	}

	if len(cart.Items) == 0 {
		return nil, apperrors.BusinessRule("EMPTY_CART", "Cannot create an order from an empty cart")
	}

	var zone models.DeliveryZone
	if err := db.WithContext(ctx).Where("name = ?", in.Commune).First(&zone).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.BusinessRule("UNKNOWN_DELIVERY_ZONE", "unknown delivery zone")
		}
		return nil, apperrors.Unavailable("Failed to resolve delivery zone", err)
	}

	settings, err := GetSettings(ctx, db)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(cart.Items, cart.Discount, zone.Fee, settings.TaxRate)

	order := models.Order{
		UserID:       userID,
		Address:      in.Address,
		City:         in.City,
		Commune:      in.Commune,
		Instructions: in.Instructions,
		Status:       models.OrderStatusPending,
		Subtotal:     totals.Subtotal,
		Discount:     totals.Discount,
		DeliveryFee:  totals.DeliveryFee,
		Tax:          totals.Tax,
		Total:        totals.Total,
	}
	for _, item := range cart.Items {
		order.Lines = append(order.Lines, models.OrderLine{
			DishID:        item.DishID,
			Quantity:      item.Quantity,
			UnitPrice:     item.Dish.Price,
			VariationID:   item.VariationID,
			Customization: item.Customization,
		})
	}

	err = withRetry(func() error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// The version guard loses when another conversion of the same
			// cart committed first.
			res := tx.Model(&models.Cart{}).
				Where("id = ? AND version = ?", cart.ID, cart.Version).
				Updates(map[string]interface{}{
					"version":    cart.Version + 1,
					"discount":   decimal.Zero,
					"promo_code": nil,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apperrors.Conflict("CART_CONFLICT",
					"Cart was modified concurrently, reload and retry")
			}

			if err := tx.Create(&order).Error; err != nil {
				return err
			}

			return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartLine{}).Error
		})
	})
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Preload("Lines.Dish").Preload("User").First(&order, order.ID).Error; err != nil {
		return nil, apperrors.Unavailable("Failed to reload order", err)
	}
	return &order, nil
}

// isDuplicateKey reports whether the error is a unique constraint violation.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
