package orders

import (
	"errors"
	"math"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// DeliveryFee is the flat rider fee charged on delivery orders.
const DeliveryFee int64 = 500

// ErrAmountOverflow is returned when an order total does not fit in int64
// minor units.
var ErrAmountOverflow = errors.New("order amount out of range")

// FeeFor returns the delivery fee for method. Pickup is free.
func FeeFor(method enums.DeliveryMethod) int64 {
	if method == enums.DeliveryMethodDelivery {
		return DeliveryFee
	}
	return 0
}

// Subtotal sums price times quantity across the items.
func Subtotal(items []models.OrderItem) (int64, error) {
	var total int64
	for _, item := range items {
		if item.Price < 0 || item.Quantity < 0 {
			return 0, ErrAmountOverflow
		}
		if item.Quantity > 0 && item.Price > math.MaxInt64/int64(item.Quantity) {
			return 0, ErrAmountOverflow
		}
		line := item.LineTotal()
		if total > math.MaxInt64-line {
			return 0, ErrAmountOverflow
		}
		total += line
	}
	return total, nil
}

// Price fills the money columns of order from its items and method. The
// order is left untouched on error.
func Price(order *models.Order) error {
	subtotal, err := Subtotal(order.Items)
	if err != nil {
		return err
	}
	fee := FeeFor(order.DeliveryMethod)
	if subtotal > math.MaxInt64-fee {
		return ErrAmountOverflow
	}
	order.Subtotal = subtotal
	order.DeliveryFee = fee
	order.Total = subtotal + fee
	return nil
}
