package reviews

import (
	"time"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
)

type ReviewDTO struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"productId"`
	UserID        string    `json:"userId"`
	UserName      string    `json:"userName"`
	UserPhotoURL  string    `json:"userPhotoUrl,omitempty"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
	ReviewCount   int       `json:"reviewCount,omitempty"`
	AverageRating float64   `json:"averageRating,omitempty"`
}

type ReviewList struct {
	Reviews    []ReviewDTO `json:"reviews"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func toReviewDTO(r models.Review) ReviewDTO {
	return ReviewDTO{
		ID:           r.ID.String(),
		ProductID:    r.ProductID.String(),
		UserID:       r.UserID,
		UserName:     r.UserName,
		UserPhotoURL: r.UserPhotoURL,
		Rating:       r.Rating,
		Comment:      r.Comment,
		CreatedAt:    r.CreatedAt,
	}
}
