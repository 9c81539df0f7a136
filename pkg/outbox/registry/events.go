package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

type eventSpec struct {
	aggregate enums.OutboxAggregateType
	payload   func() any
}

func orderSpec() eventSpec {
	return eventSpec{aggregate: enums.AggregateOrder, payload: func() any { return &payloads.OrderEvent{} }}
}

// catalog lists every event the service writes to the outbox.
var catalog = map[enums.OutboxEventType]eventSpec{
	enums.EventOrderPlaced:     orderSpec(),
	enums.EventOrderAccepted:   orderSpec(),
	enums.EventOrderRejected:   orderSpec(),
	enums.EventDeliveryClaimed: orderSpec(),
	enums.EventOrderPickedUp:   orderSpec(),
	enums.EventOrderDelivered:  orderSpec(),
	enums.EventOrderCancelled:  orderSpec(),
	enums.EventWalletFunded: {
		aggregate: enums.AggregateWallet,
		payload:   func() any { return &payloads.WalletFundedEvent{} },
	},
	enums.EventReviewSubmitted: {
		aggregate: enums.AggregateProduct,
		payload:   func() any { return &payloads.ReviewSubmittedEvent{} },
	},
	enums.EventChatMessageSent: {
		aggregate: enums.AggregateChat,
		payload:   func() any { return &payloads.ChatMessageSentEvent{} },
	},
}

// EventDescriptor says where an event type is published.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row that passed validation, with its payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks a row that will never publish; the relay dead-letters it.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry validates outbox rows before the relay publishes them. Every
// event goes to the orders topic; subscribers filter on the event_type attribute.
type EventRegistry struct {
	topic    string
	decoders *DecoderRegistry
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	return &EventRegistry{topic: cfg.OrdersTopic, decoders: NewDefaultDecoderRegistry()}, nil
}

// Resolve checks the row against the catalog and decodes its payload. Every
// failure is a NonRetryableError since retrying cannot change the row.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	entry, ok := catalog[row.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", row.EventType)
	case entry.aggregate != row.AggregateType:
		return nil, permanent("aggregate mismatch: %s belongs to %s, row says %s", row.EventType, entry.aggregate, row.AggregateType)
	case row.AggregateID == "":
		return nil, permanent("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("payload missing for %s", row.EventType)
	}
	payload, err := r.decoders.Decode(row.EventType, envelope.Version, data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", row.EventType, err)
	}

	return &ResolvedEvent{
		Descriptor: EventDescriptor{EventType: row.EventType, AggregateType: entry.aggregate, Topic: r.topic},
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
