package product

import (
	"time"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

type ProductDTO struct {
	ID              string                 `json:"id"`
	VendorID        string                 `json:"vendorId"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category"`
	Price           int64                  `json:"price"`
	ImageURL        string                 `json:"imageUrl"`
	DeliveryMethods []enums.DeliveryMethod `json:"deliveryMethods"`
	Status          enums.ProductStatus    `json:"status"`
	University      string                 `json:"university,omitempty"`
	ReviewCount     int                    `json:"reviewCount"`
	AverageRating   float64                `json:"averageRating"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type ProductList struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toProductDTO(p models.Product) ProductDTO {
	methods := make([]enums.DeliveryMethod, 0, len(p.DeliveryMethods))
	for _, m := range p.DeliveryMethods {
		methods = append(methods, enums.DeliveryMethod(m))
	}
	return ProductDTO{
		ID:              p.ID.String(),
		VendorID:        p.VendorID,
		Title:           p.Title,
		Description:     p.Description,
		Category:        p.Category,
		Price:           p.Price,
		ImageURL:        p.ImageURL,
		DeliveryMethods: methods,
		Status:          p.Status,
		University:      p.University,
		ReviewCount:     p.ReviewCount,
		AverageRating:   p.AverageRating(),
		CreatedAt:       p.CreatedAt,
	}
}
