package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a buyer's rating of a listing. A user reviews a product at most
// once; the product carries the running count and total.
type Review struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	UserID       string    `gorm:"column:user_id;not null"`
	UserName     string    `gorm:"column:user_name;not null;default:''"`
	UserPhotoURL string    `gorm:"column:user_photo_url;not null;default:''"`
	Rating       int       `gorm:"column:rating;not null"`
	Comment      string    `gorm:"column:comment;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}
