package router

import (
	"context"
	"fmt"

	analyticswriter "github.com/angelmondragon/univend-backend/internal/analytics/writer"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

// chatMessageSentHandler counts buyer to vendor contact. Message text stays
// out of the warehouse; the stored payload drops the preview.
type chatMessageSentHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newChatMessageSentHandler(writer Writer, logg *logger.Logger) consumers.Handler {
	return &chatMessageSentHandler{writer: writer, logg: logg}
}

func (h *chatMessageSentHandler) Handle(ctx context.Context, envelope consumers.Envelope) error {
	event, ok := envelope.Payload.(*payloads.ChatMessageSentEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	redacted := *event
	redacted.Preview = ""
	payloadJSON, err := analyticswriter.EncodeJSON(redacted)
	if err != nil {
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.UserID = optionalString(event.SenderID)
	row.Payload = payloadJSON

	logCtx := h.logg.WithField(ctx, "chat_id", event.ChatID)
	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert chat row", err)
		return err
	}
	return nil
}
