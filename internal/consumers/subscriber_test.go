package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/univend-backend/pkg/outbox/registry"
)

type memoryIdempotency struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{claimed: map[string]bool{}}
}

func (m *memoryIdempotency) Claim(_ context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := consumer + ":" + eventID.String()
	if m.claimed[key] {
		return false, nil
	}
	m.claimed[key] = true
	return true, nil
}

func (m *memoryIdempotency) Release(_ context.Context, consumer string, eventID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, consumer+":"+eventID.String())
	return nil
}

type noopReceiver struct{}

func (noopReceiver) Receive(context.Context, func(context.Context, *gcppubsub.Message)) error {
	return nil
}

func newTestSubscriber(t *testing.T, handler Handler, manager idempotencyChecker) *Subscriber {
	t.Helper()
	sub, err := NewSubscriber(SubscriberParams{
		Name:         "test-consumer",
		Subscription: noopReceiver{},
		Handler:      handler,
		Idempotency:  manager,
		Decoders:     registry.NewDefaultDecoderRegistry(),
		Logger:       logger.New(logger.Options{Output: io.Discard}),
	})
	require.NoError(t, err)
	return sub
}

func orderMessage(t *testing.T, eventID uuid.UUID, eventType enums.OutboxEventType) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(payloads.OrderEvent{OrderID: "order-1", BuyerID: "buyer-1", VendorID: "vendor-1", Total: 6500})
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:     1,
		EventID:     eventID.String(),
		EventType:   string(eventType),
		AggregateID: "order-1",
		OccurredAt:  time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		Actor:       &outbox.ActorRef{UserID: "vendor-1", Role: "vendor"},
		Data:        data,
	})
	require.NoError(t, err)
	return &gcppubsub.Message{
		ID:   "msg-" + eventID.String()[:8],
		Data: body,
		Attributes: map[string]string{
			"event_id":       eventID.String(),
			"event_type":     string(eventType),
			"aggregate_type": string(enums.AggregateOrder),
			"aggregate_id":   "order-1",
		},
	}
}

func TestSubscriberDecodesAndHandlesOnce(t *testing.T) {
	var seen []Envelope
	handler := HandlerFunc(func(_ context.Context, env Envelope) error {
		seen = append(seen, env)
		return nil
	})
	sub := newTestSubscriber(t, handler, newMemoryIdempotency())
	msg := orderMessage(t, uuid.New(), enums.EventOrderAccepted)

	assert.Equal(t, ack, sub.process(context.Background(), msg))
	assert.Equal(t, ack, sub.process(context.Background(), msg), "redelivery is acked")

	require.Len(t, seen, 1)
	env := seen[0]
	assert.Equal(t, enums.EventOrderAccepted, env.EventType)
	assert.Equal(t, "order-1", env.AggregateID)
	require.NotNil(t, env.Actor)
	assert.Equal(t, "vendor-1", env.Actor.UserID)
	order, ok := env.Payload.(*payloads.OrderEvent)
	require.True(t, ok)
	assert.EqualValues(t, 6500, order.Total)
}

func TestSubscriberReleasesClaimWhenHandlerFails(t *testing.T) {
	calls := 0
	handler := HandlerFunc(func(context.Context, Envelope) error {
		calls++
		if calls == 1 {
			return errors.New("database down")
		}
		return nil
	})
	sub := newTestSubscriber(t, handler, newMemoryIdempotency())
	msg := orderMessage(t, uuid.New(), enums.EventOrderPlaced)

	assert.Equal(t, nack, sub.process(context.Background(), msg))
	assert.Equal(t, ack, sub.process(context.Background(), msg))
	assert.Equal(t, 2, calls)
}

func TestSubscriberNacksWhenIdempotencyStoreFails(t *testing.T) {
	manager := newMemoryIdempotency()
	manager.err = errors.New("redis unavailable")
	called := false
	sub := newTestSubscriber(t, HandlerFunc(func(context.Context, Envelope) error {
		called = true
		return nil
	}), manager)

	assert.Equal(t, nack, sub.process(context.Background(), orderMessage(t, uuid.New(), enums.EventOrderPlaced)))
	assert.False(t, called)
}

func TestSubscriberAcksPoisonMessages(t *testing.T) {
	called := false
	sub := newTestSubscriber(t, HandlerFunc(func(context.Context, Envelope) error {
		called = true
		return nil
	}), newMemoryIdempotency())

	garbage := &gcppubsub.Message{ID: "bad", Data: []byte("{not json")}
	assert.Equal(t, ack, sub.process(context.Background(), garbage))

	unknown := orderMessage(t, uuid.New(), enums.EventOrderPlaced)
	unknown.Attributes["aggregate_type"] = "store"
	assert.Equal(t, ack, sub.process(context.Background(), unknown))

	assert.False(t, called)
}

func TestNewSubscriberValidates(t *testing.T) {
	_, err := NewSubscriber(SubscriberParams{Name: "x"})
	assert.Error(t, err)
}
