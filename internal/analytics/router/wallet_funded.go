package router

import (
	"context"
	"fmt"

	analyticswriter "github.com/angelmondragon/univend-backend/internal/analytics/writer"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

type walletFundedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newWalletFundedHandler(writer Writer, logg *logger.Logger) consumers.Handler {
	return &walletFundedHandler{writer: writer, logg: logg}
}

func (h *walletFundedHandler) Handle(ctx context.Context, envelope consumers.Envelope) error {
	event, ok := envelope.Payload.(*payloads.WalletFundedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.UserID = optionalString(event.UserID)
	row.WalletAmount = int64Of(event.Amount)
	row.Payload = payloadJSON

	logCtx := h.logg.WithField(ctx, "user_id", event.UserID)
	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert wallet funding row", err)
		return err
	}
	return nil
}
