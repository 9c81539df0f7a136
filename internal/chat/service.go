// Package chat carries buyer to vendor conversations about a listing. There
// is one chat per buyer and product; only its two participants can read or
// write it.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/transition"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

const (
	MaxMessageLength = 1000
	previewLength    = 120
)

type Service interface {
	// Open returns the caller's chat about the product, creating it on first
	// contact. The bool reports whether it was created.
	Open(ctx context.Context, buyer auth.Identity, productID uuid.UUID) (*ChatDTO, bool, error)
	Send(ctx context.Context, sender auth.Identity, chatID uuid.UUID, text string) (*MessageDTO, error)
	List(ctx context.Context, user auth.Identity, params pagination.Params) (*ChatList, error)
	Messages(ctx context.Context, user auth.Identity, chatID uuid.UUID, params pagination.Params) (*MessageList, error)
}

type transitionRunner interface {
	Run(ctx context.Context, name string, fn transition.Func) error
}

type catalog interface {
	LoadTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type ServiceParams struct {
	Repository Repository
	Runner     transitionRunner
	Products   catalog
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     Repository
	runner   transitionRunner
	products catalog
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("chat repository required")
	case params.Runner == nil:
		return nil, fmt.Errorf("transition runner required")
	case params.Products == nil:
		return nil, fmt.Errorf("product catalog required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repository,
		runner:   params.Runner,
		products: params.Products,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func requireCaller(id auth.Identity) error {
	if strings.TrimSpace(id.UserID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
	}
	return nil
}

func (s *service) Open(ctx context.Context, buyer auth.Identity, productID uuid.UUID) (*ChatDTO, bool, error) {
	if err := requireCaller(buyer); err != nil {
		return nil, false, err
	}
	if productID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var (
		out     *models.Chat
		created bool
	)
	err := s.runner.Run(ctx, "open_chat", func(tx *gorm.DB) error {
		listings, err := s.products.LoadTx(ctx, tx, []uuid.UUID{productID})
		if err != nil {
			return err
		}
		listing := listings[productID]
		if listing.VendorID == buyer.UserID {
			return pkgerrors.New(pkgerrors.CodeValidation, "you cannot start a chat for your own product")
		}

		repo := s.repo.WithTx(tx)
		now := s.now()
		created, err = repo.CreateIfAbsent(ctx, &models.Chat{
			ID:              uuid.New(),
			ProductID:       listing.ID,
			ProductTitle:    listing.Title,
			ProductImageURL: listing.ImageURL,
			BuyerID:         buyer.UserID,
			BuyerName:       strings.TrimSpace(buyer.Name),
			VendorID:        listing.VendorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		out, err = repo.FindForBuyer(ctx, listing.ID, buyer.UserID)
		if err != nil {
			return fmt.Errorf("load chat: %w", err)
		}
		if out == nil {
			return fmt.Errorf("chat for product %s vanished after insert", listing.ID)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logg.Info(s.logg.WithField(ctx, "chat_id", out.ID.String()), "chat opened")
	}
	dto := toChatDTO(*out)
	return &dto, created, nil
}

// Send appends a message and stages chat_message_sent for the other
// participant in the same unit.
func (s *service) Send(ctx context.Context, sender auth.Identity, chatID uuid.UUID, text string) (*MessageDTO, error) {
	if err := requireCaller(sender); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n == 0 || n > MaxMessageLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "message must be 1 to %d characters", MaxMessageLength).
			WithDetails(map[string]any{"field": "text", "length": n})
	}
	ctx = s.logg.WithField(ctx, "chat_id", chatID.String())

	var out models.ChatMessage
	err := s.runner.Run(ctx, "send_chat_message", func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		chat, err := s.participantChat(ctx, repo, sender.UserID, chatID)
		if err != nil {
			return err
		}

		msg := models.ChatMessage{
			ID:        uuid.New(),
			ChatID:    chat.ID,
			SenderID:  sender.UserID,
			Text:      text,
			CreatedAt: s.now(),
		}
		preview := truncate(text, previewLength)
		if err := repo.AppendMessage(ctx, &msg, preview); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChatMessageSent,
			AggregateType: enums.AggregateChat,
			AggregateID:   chat.ID.String(),
			Actor:         &outbox.ActorRef{UserID: sender.UserID, Role: sender.Role.String()},
			Data: payloads.ChatMessageSentEvent{
				ChatID:       chat.ID.String(),
				MessageID:    msg.ID.String(),
				ProductID:    chat.ProductID.String(),
				ProductTitle: chat.ProductTitle,
				SenderID:     sender.UserID,
				SenderName:   strings.TrimSpace(sender.Name),
				RecipientID:  chat.Counterpart(sender.UserID),
				Preview:      preview,
			},
			OccurredAt: msg.CreatedAt,
		}); err != nil {
			return fmt.Errorf("emit %s: %w", enums.EventChatMessageSent, err)
		}
		out = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toMessageDTO(out)
	return &dto, nil
}

// participantChat reports chats the caller is not part of as NOT_FOUND, the
// same as a missing one.
func (s *service) participantChat(ctx context.Context, repo Repository, userID string, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := repo.FindByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if chat == nil || !chat.HasParticipant(userID) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "chat %s not found", chatID)
	}
	return chat, nil
}

func (s *service) List(ctx context.Context, user auth.Identity, params pagination.Params) (*ChatList, error) {
	if err := requireCaller(user); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, user.UserID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list chats")
	}
	page, next := pagination.Page(rows, params.Limit, chatCursor)
	list := &ChatList{Chats: make([]ChatDTO, 0, len(page)), NextCursor: next}
	for _, c := range page {
		list.Chats = append(list.Chats, toChatDTO(c))
	}
	return list, nil
}

func (s *service) Messages(ctx context.Context, user auth.Identity, chatID uuid.UUID, params pagination.Params) (*MessageList, error) {
	if err := requireCaller(user); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if _, err := s.participantChat(ctx, s.repo, user.UserID, chatID); err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load chat")
		}
		return nil, err
	}
	rows, err := s.repo.ListMessages(ctx, chatID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	page, next := pagination.Page(rows, params.Limit, messageCursor)
	list := &MessageList{Messages: make([]MessageDTO, 0, len(page)), NextCursor: next}
	for _, m := range page {
		list.Messages = append(list.Messages, toMessageDTO(m))
	}
	return list, nil
}

func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max-1]) + "…"
}
