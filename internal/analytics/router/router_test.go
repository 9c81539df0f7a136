package router

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/internal/analytics/types"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

func newTestRouter(t *testing.T, writer Writer, overrides map[enums.OutboxEventType]consumers.Handler) *Router {
	t.Helper()
	r, err := NewRouter(writer, logger.New(logger.Options{Output: io.Discard}), overrides)
	require.NoError(t, err)
	return r
}

func orderEnvelope(eventType enums.OutboxEventType, event payloads.OrderEvent) consumers.Envelope {
	return consumers.Envelope{
		EventID:     uuid.New(),
		EventType:   eventType,
		AggregateID: event.OrderID,
		OccurredAt:  time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		Actor:       &outbox.ActorRef{UserID: "vendor-1", Role: "vendor"},
		Payload:     &event,
	}
}

func TestAcceptedOrderRecordsGrossRevenue(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestRouter(t, writer, nil)

	env := orderEnvelope(enums.EventOrderAccepted, payloads.OrderEvent{
		OrderID:        "order-1",
		BuyerID:        "buyer-1",
		VendorID:       "vendor-1",
		Status:         enums.OrderStatusPending,
		PreviousStatus: enums.OrderStatusPendingConfirmation,
		PaymentStatus:  enums.PaymentStatusPaid,
		DeliveryMethod: enums.DeliveryMethodDelivery,
		Subtotal:       6000,
		DeliveryFee:    500,
		Total:          6500,
		ItemCount:      2,
		University:     "UNILAG",
	})
	require.NoError(t, r.Handle(context.Background(), env))

	require.Len(t, writer.inserted, 1)
	row := writer.inserted[0]
	assert.Equal(t, env.EventID.String(), row.EventID)
	assert.Equal(t, "order_accepted", row.EventType)
	require.NotNil(t, row.GrossRevenue)
	assert.EqualValues(t, 6500, *row.GrossRevenue)
	assert.Nil(t, row.Refund)
	assert.Nil(t, row.RiderID)
	require.NotNil(t, row.ActorRole)
	assert.Equal(t, "vendor", *row.ActorRole)
	assert.True(t, row.Payload.Valid)
}

func TestRefundedCancellationRecordsRefund(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestRouter(t, writer, nil)

	require.NoError(t, r.Handle(context.Background(), orderEnvelope(enums.EventOrderCancelled, payloads.OrderEvent{
		OrderID:       "order-1",
		Status:        enums.OrderStatusCancelled,
		PaymentStatus: enums.PaymentStatusRefunded,
		Total:         6500,
		Reason:        "vendor closed",
	})))
	require.NoError(t, r.Handle(context.Background(), orderEnvelope(enums.EventOrderCancelled, payloads.OrderEvent{
		OrderID:       "order-2",
		Status:        enums.OrderStatusCancelled,
		PaymentStatus: enums.PaymentStatusPending,
		Total:         3000,
	})))

	require.Len(t, writer.inserted, 2)
	require.NotNil(t, writer.inserted[0].Refund)
	assert.EqualValues(t, 6500, *writer.inserted[0].Refund)
	assert.Equal(t, "vendor closed", *writer.inserted[0].Reason)
	assert.Nil(t, writer.inserted[1].Refund, "unpaid cancellations carry no refund")
}

func TestWalletFundedRow(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestRouter(t, writer, nil)

	require.NoError(t, r.Handle(context.Background(), consumers.Envelope{
		EventID:   uuid.New(),
		EventType: enums.EventWalletFunded,
		Payload:   &payloads.WalletFundedEvent{UserID: "buyer-1", Amount: 2000, BalanceAfter: 52000},
	}))

	require.Len(t, writer.inserted, 1)
	assert.Equal(t, "buyer-1", *writer.inserted[0].UserID)
	assert.EqualValues(t, 2000, *writer.inserted[0].WalletAmount)
	assert.Nil(t, writer.inserted[0].OrderID)
}

func TestReviewSubmittedRow(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestRouter(t, writer, nil)

	require.NoError(t, r.Handle(context.Background(), consumers.Envelope{
		EventID:   uuid.New(),
		EventType: enums.EventReviewSubmitted,
		Payload:   &payloads.ReviewSubmittedEvent{ProductID: "p-1", VendorID: "vendor-1", ReviewerID: "buyer-1", Rating: 5},
	}))

	require.Len(t, writer.inserted, 1)
	assert.Equal(t, "buyer-1", *writer.inserted[0].UserID)
	assert.Equal(t, "vendor-1", *writer.inserted[0].VendorID)
	assert.Equal(t, "review_submitted", writer.inserted[0].EventType)
	assert.True(t, writer.inserted[0].Payload.Valid)
}

func TestChatMessageRowOmitsText(t *testing.T) {
	writer := &recordingWriter{}
	r := newTestRouter(t, writer, nil)

	require.NoError(t, r.Handle(context.Background(), consumers.Envelope{
		EventID:   uuid.New(),
		EventType: enums.EventChatMessageSent,
		Payload: &payloads.ChatMessageSentEvent{
			ChatID: "chat-1", SenderID: "buyer-1", RecipientID: "vendor-1", Preview: "my number is 0803...",
		},
	}))

	require.Len(t, writer.inserted, 1)
	row := writer.inserted[0]
	assert.Equal(t, "buyer-1", *row.UserID)
	require.True(t, row.Payload.Valid)
	assert.Contains(t, string(row.Payload.JSONVal), "chat-1")
	assert.NotContains(t, string(row.Payload.JSONVal), "0803")
}

func TestRouterErrors(t *testing.T) {
	writer := &recordingWriter{fail: true}
	r := newTestRouter(t, writer, nil)

	err := r.Handle(context.Background(), orderEnvelope(enums.EventOrderPlaced, payloads.OrderEvent{OrderID: "order-1"}))
	assert.Error(t, err, "writer failures surface so the event is redelivered")

	err = r.Handle(context.Background(), consumers.Envelope{EventType: "store_created", Payload: struct{}{}})
	assert.True(t, errors.Is(err, ErrUnsupportedEventType))

	err = r.Handle(context.Background(), consumers.Envelope{EventType: enums.EventOrderPlaced})
	assert.Error(t, err)

	err = r.Handle(context.Background(), consumers.Envelope{EventType: enums.EventOrderPlaced, Payload: &payloads.WalletFundedEvent{}})
	assert.Error(t, err)
}

func TestRouterOverrides(t *testing.T) {
	called := false
	r := newTestRouter(t, &recordingWriter{}, map[enums.OutboxEventType]consumers.Handler{
		enums.EventOrderDelivered: consumers.HandlerFunc(func(context.Context, consumers.Envelope) error {
			called = true
			return nil
		}),
	})

	require.NoError(t, r.Handle(context.Background(), orderEnvelope(enums.EventOrderDelivered, payloads.OrderEvent{OrderID: "order-1"})))
	assert.True(t, called)
}

type recordingWriter struct {
	inserted []types.MarketplaceEventRow
	fail     bool
}

func (w *recordingWriter) InsertMarketplace(_ context.Context, row types.MarketplaceEventRow) error {
	if w.fail {
		return errors.New("bigquery unavailable")
	}
	w.inserted = append(w.inserted, row)
	return nil
}
