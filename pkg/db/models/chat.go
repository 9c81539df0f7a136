package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is the conversation between one buyer and the vendor of one listing.
// The last_* columns mirror the newest message so the inbox needs no join.
type Chat struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	ProductTitle    string     `gorm:"column:product_title;not null"`
	ProductImageURL string     `gorm:"column:product_image_url;not null;default:''"`
	BuyerID         string     `gorm:"column:buyer_id;not null"`
	BuyerName       string     `gorm:"column:buyer_name;not null;default:''"`
	VendorID        string     `gorm:"column:vendor_id;not null"`
	LastMessageText *string    `gorm:"column:last_message_text"`
	LastSenderID    *string    `gorm:"column:last_sender_id"`
	LastMessageAt   *time.Time `gorm:"column:last_message_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null"`
}

// HasParticipant reports whether userID is the buyer or the vendor.
func (c Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.VendorID == userID)
}

// Counterpart returns the other participant, or "" if userID is not one.
func (c Chat) Counterpart(userID string) string {
	switch userID {
	case c.BuyerID:
		return c.VendorID
	case c.VendorID:
		return c.BuyerID
	default:
		return ""
	}
}

type ChatMessage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ChatID    uuid.UUID `gorm:"column:chat_id;type:uuid;not null"`
	SenderID  string    `gorm:"column:sender_id;not null"`
	Text      string    `gorm:"column:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}
