package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Repository persists conversations and their messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// CreateIfAbsent inserts chat unless the buyer already has one for the
	// product, and reports whether a row was written.
	CreateIfAbsent(ctx context.Context, chat *models.Chat) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	FindForBuyer(ctx context.Context, productID uuid.UUID, buyerID string) (*models.Chat, error)
	AppendMessage(ctx context.Context, msg *models.ChatMessage, preview string) error
	ListForUser(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]models.Chat, error)
	ListMessages(ctx context.Context, chatID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ChatMessage, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateIfAbsent(ctx context.Context, chat *models.Chat) (bool, error) {
	onPair := clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "buyer_id"}},
		DoNothing: true,
	}
	res := r.db.WithContext(ctx).Clauses(onPair).Create(chat)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) first(query *gorm.DB) (*models.Chat, error) {
	var chat models.Chat
	if err := query.First(&chat).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chat, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindForBuyer(ctx context.Context, productID uuid.UUID, buyerID string) (*models.Chat, error) {
	return r.first(r.db.WithContext(ctx).Where("product_id = ? AND buyer_id = ?", productID, buyerID))
}

// AppendMessage writes the message and moves the chat to the top of both
// inboxes. Callers run it inside a transaction.
func (r *repository) AppendMessage(ctx context.Context, msg *models.ChatMessage, preview string) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", msg.ChatID).
		UpdateColumns(map[string]any{
			"last_message_text": preview,
			"last_sender_id":    msg.SenderID,
			"last_message_at":   msg.CreatedAt,
			"updated_at":        msg.CreatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListForUser returns the user's chats, most recently active first. The
// cursor's timestamp is the chat's updated_at.
func (r *repository) ListForUser(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) ([]models.Chat, error) {
	query := r.db.WithContext(ctx).Where("(buyer_id = ? OR vendor_id = ?)", userID, userID)
	if cursor != nil {
		query = query.Where("(updated_at < ? OR (updated_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Chat
	err := query.Order("updated_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// ListMessages returns newest first.
func (r *repository) ListMessages(ctx context.Context, chatID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ChatMessage, error) {
	query := r.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.ChatMessage
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func chatCursor(c models.Chat) pagination.Cursor {
	return pagination.Cursor{CreatedAt: c.UpdatedAt, ID: c.ID}
}

func messageCursor(m models.ChatMessage) pagination.Cursor {
	return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
}
