package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// Product is a vendor listing. Status only ever moves from available to sold.
type Product struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	VendorID        string              `gorm:"column:vendor_id;not null"`
	Title           string              `gorm:"column:title;not null"`
	Description     string              `gorm:"column:description;not null;default:''"`
	Category        string              `gorm:"column:category;not null"`
	Price           int64               `gorm:"column:price;not null"`
	ImageURL        string              `gorm:"column:image_url;not null;default:''"`
	DeliveryMethods pq.StringArray      `gorm:"column:delivery_methods;type:text[];not null"`
	Status          enums.ProductStatus `gorm:"column:status;not null;default:available"`
	University      string              `gorm:"column:university;not null;default:''"`
	ReviewCount     int                 `gorm:"column:review_count;not null;default:0"`
	RatingTotal     int64               `gorm:"column:rating_total;not null;default:0"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// AverageRating is the mean review score, or zero before the first review.
func (p Product) AverageRating() float64 {
	if p.ReviewCount == 0 {
		return 0
	}
	return float64(p.RatingTotal) / float64(p.ReviewCount)
}

// Supports reports whether the listing can be fulfilled with method.
func (p Product) Supports(method enums.DeliveryMethod) bool {
	for _, m := range p.DeliveryMethods {
		if enums.DeliveryMethod(m) == method {
			return true
		}
	}
	return false
}
