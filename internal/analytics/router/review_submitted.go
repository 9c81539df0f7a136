package router

import (
	"context"
	"fmt"

	analyticswriter "github.com/angelmondragon/univend-backend/internal/analytics/writer"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

// reviewSubmittedHandler records ratings. Product and score ride in the
// payload column; the row keys on reviewer and vendor.
type reviewSubmittedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newReviewSubmittedHandler(writer Writer, logg *logger.Logger) consumers.Handler {
	return &reviewSubmittedHandler{writer: writer, logg: logg}
}

func (h *reviewSubmittedHandler) Handle(ctx context.Context, envelope consumers.Envelope) error {
	event, ok := envelope.Payload.(*payloads.ReviewSubmittedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.UserID = optionalString(event.ReviewerID)
	row.VendorID = optionalString(event.VendorID)
	row.Payload = payloadJSON

	logCtx := h.logg.WithField(ctx, "product_id", event.ProductID)
	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert review row", err)
		return err
	}
	return nil
}
