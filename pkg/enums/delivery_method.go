package enums

import (
	"slices"
	"strings"
)

// DeliveryMethod is how goods reach the buyer.
type DeliveryMethod string

const (
	DeliveryMethodDelivery DeliveryMethod = "delivery"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodDelivery,
	DeliveryMethodPickup,
}

func (d DeliveryMethod) String() string {
	return string(d)
}

func (d DeliveryMethod) IsValid() bool {
	return slices.Contains(validDeliveryMethods, d)
}

// ParseDeliveryMethod accepts the canonical values, case-insensitively.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	return parseEnum(validDeliveryMethods, "delivery method", strings.ToLower(strings.TrimSpace(value)))
}
