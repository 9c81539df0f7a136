package router

import (
	"context"
	"fmt"

	"github.com/angelmondragon/univend-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/univend-backend/internal/analytics/writer"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

type orderEventHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderEventHandler(writer Writer, logg *logger.Logger) consumers.Handler {
	return &orderEventHandler{writer: writer, logg: logg}
}

func (h *orderEventHandler) Handle(ctx context.Context, envelope consumers.Envelope) error {
	event, ok := envelope.Payload.(*payloads.OrderEvent)
	if !ok {
		return fmt.Errorf("invalid payload for %s", envelope.EventType)
	}

	logCtx := h.logg.WithFields(ctx, map[string]any{
		"order_id": event.OrderID,
		"status":   event.Status,
	})

	row, err := buildOrderRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build marketplace row", err)
		return err
	}
	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Debug(logCtx, "marketplace row inserted")
	return nil
}

// buildOrderRow records revenue when the buyer is charged and a refund when
// a paid order is cancelled, so summing gross minus refund gives net sales.
func buildOrderRow(envelope consumers.Envelope, event *payloads.OrderEvent) (types.MarketplaceEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.MarketplaceEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.OrderID = optionalString(event.OrderID)
	row.BuyerID = optionalString(event.BuyerID)
	row.VendorID = optionalString(event.VendorID)
	row.RiderID = optionalString(event.RiderID)
	row.University = optionalString(event.University)
	row.Status = optionalString(event.Status)
	row.PreviousStatus = optionalString(event.PreviousStatus)
	row.PaymentStatus = optionalString(event.PaymentStatus)
	row.DeliveryMethod = optionalString(event.DeliveryMethod)
	row.ItemCount = int64Of(event.ItemCount)
	row.Subtotal = int64Of(event.Subtotal)
	row.DeliveryFee = int64Of(event.DeliveryFee)
	row.Total = int64Of(event.Total)
	row.Reason = optionalString(event.Reason)
	row.Payload = payloadJSON

	switch {
	case envelope.EventType == enums.EventOrderAccepted:
		row.GrossRevenue = int64Of(event.Total)
	case envelope.EventType == enums.EventOrderCancelled && event.PaymentStatus == enums.PaymentStatusRefunded:
		row.Refund = int64Of(event.Total)
	}
	return row, nil
}

func baseRow(envelope consumers.Envelope) types.MarketplaceEventRow {
	row := types.MarketplaceEventRow{
		EventID:    envelope.EventID.String(),
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
	}
	if envelope.Actor != nil {
		row.ActorID = optionalString(envelope.Actor.UserID)
		row.ActorRole = optionalString(envelope.Actor.Role)
	}
	return row
}
