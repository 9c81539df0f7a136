package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func envelopeBytes(t *testing.T, version int, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return body
}

func TestCatalogCoversEveryEventType(t *testing.T) {
	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderPlaced, enums.EventOrderAccepted, enums.EventOrderRejected,
		enums.EventDeliveryClaimed, enums.EventOrderPickedUp, enums.EventOrderDelivered,
		enums.EventOrderCancelled, enums.EventWalletFunded, enums.EventReviewSubmitted,
		enums.EventChatMessageSent,
	} {
		_, ok := catalog[eventType]
		assert.True(t, ok, eventType)
	}
}

func TestResolveOrderEvent(t *testing.T) {
	orderID := uuid.NewString()
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderAccepted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelopeBytes(t, 1, payloads.OrderEvent{
			OrderID:  orderID,
			BuyerID:  "buyer-1",
			VendorID: "vendor-1",
			Status:   enums.OrderStatusPending,
			Total:    6500,
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "orders-topic", resolved.Descriptor.Topic)
	assert.Equal(t, enums.AggregateOrder, resolved.Descriptor.AggregateType)
	payload, ok := resolved.Payload.(*payloads.OrderEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, orderID, payload.OrderID)
	assert.Equal(t, int64(6500), int64(payload.Total))
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestResolveWalletFunded(t *testing.T) {
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventWalletFunded,
		AggregateType: enums.AggregateWallet,
		AggregateID:   "user-1",
		Payload:       envelopeBytes(t, 1, payloads.WalletFundedEvent{UserID: "user-1", Amount: 1000}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), int64(resolved.Payload.(*payloads.WalletFundedEvent).Amount))
}

func TestResolveReviewSubmitted(t *testing.T) {
	productID := uuid.NewString()
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventReviewSubmitted,
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Payload:       envelopeBytes(t, 1, payloads.ReviewSubmittedEvent{ProductID: productID, VendorID: "vendor-1", Rating: 4}),
	})
	require.NoError(t, err)
	payload, ok := resolved.Payload.(*payloads.ReviewSubmittedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, 4, payload.Rating)
	assert.Equal(t, enums.AggregateProduct, resolved.Descriptor.AggregateType)
}

func TestResolveChatMessageSent(t *testing.T) {
	chatID := uuid.NewString()
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventChatMessageSent,
		AggregateType: enums.AggregateChat,
		AggregateID:   chatID,
		Payload:       envelopeBytes(t, 1, payloads.ChatMessageSentEvent{ChatID: chatID, SenderID: "buyer-1", RecipientID: "vendor-1", Preview: "hi"}),
	})
	require.NoError(t, err)
	payload, ok := resolved.Payload.(*payloads.ChatMessageSentEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, "vendor-1", payload.RecipientID)

	_, err = testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventChatMessageSent,
		AggregateType: enums.AggregateProduct,
		AggregateID:   chatID,
		Payload:       envelopeBytes(t, 1, payloads.ChatMessageSentEvent{ChatID: chatID}),
	})
	assert.Error(t, err, "chat events belong to the chat aggregate")
}

func TestResolveRejectsBadRows(t *testing.T) {
	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     enums.OutboxEventType("order_teleported"),
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.NewString(),
			Payload:       envelopeBytes(t, 1, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateWallet,
			AggregateID:   uuid.NewString(),
			Payload:       envelopeBytes(t, 1, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			Payload:       envelopeBytes(t, 1, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.NewString(),
			Payload:       envelopeBytes(t, 1, []byte("null")),
		},
		"unknown version": {
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.NewString(),
			Payload:       envelopeBytes(t, 9, []byte(`{}`)),
		},
		"broken envelope": {
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.NewString(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	reg := testRegistry(t)
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			require.Error(t, err)
			assert.ErrorAs(t, err, new(NonRetryableError))
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}
