package enums

import "slices"

// ProductStatus gates whether a listing can still be bought.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
)

var validProductStatuses = []ProductStatus{
	ProductStatusAvailable,
	ProductStatusSold,
}

func (p ProductStatus) IsValid() bool {
	return slices.Contains(validProductStatuses, p)
}

func ParseProductStatus(value string) (ProductStatus, error) {
	return parseEnum(validProductStatuses, "product status", value)
}
