package chat

import (
	"time"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
)

type LastMessageDTO struct {
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatDTO struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	ProductTitle    string          `json:"productTitle"`
	ProductImageURL string          `json:"productImageUrl,omitempty"`
	BuyerID         string          `json:"buyerId"`
	BuyerName       string          `json:"buyerName,omitempty"`
	VendorID        string          `json:"vendorId"`
	LastMessage     *LastMessageDTO `json:"lastMessage"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type ChatList struct {
	Chats      []ChatDTO `json:"chats"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

type MessageDTO struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageList struct {
	Messages   []MessageDTO `json:"messages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toChatDTO(c models.Chat) ChatDTO {
	dto := ChatDTO{
		ID:              c.ID.String(),
		ProductID:       c.ProductID.String(),
		ProductTitle:    c.ProductTitle,
		ProductImageURL: c.ProductImageURL,
		BuyerID:         c.BuyerID,
		BuyerName:       c.BuyerName,
		VendorID:        c.VendorID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.LastMessageText != nil && c.LastSenderID != nil && c.LastMessageAt != nil {
		dto.LastMessage = &LastMessageDTO{Text: *c.LastMessageText, SenderID: *c.LastSenderID, CreatedAt: *c.LastMessageAt}
	}
	return dto
}

func toMessageDTO(m models.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:        m.ID.String(),
		ChatID:    m.ChatID.String(),
		SenderID:  m.SenderID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
