// Package consumers runs the Pub/Sub subscribers that apply the side effects
// of committed lifecycle events: notifications and analytics.
package consumers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
)

// Envelope is a delivered outbox event with its payload already decoded.
type Envelope struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Version       int
	OccurredAt    time.Time
	Actor         *outbox.ActorRef
	Data          json.RawMessage
	Payload       any
}

// errPoison marks messages that can never be handled; they are acked so
// Pub/Sub stops redelivering them.
var errPoison = errors.New("poison message")

func parseEnvelope(msg *gcppubsub.Message) (*Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("%w: decode payload envelope: %v", errPoison, err)
	}

	rawType := strings.TrimSpace(stored.EventType)
	if rawType == "" {
		rawType = strings.TrimSpace(msg.Attributes["event_type"])
	}
	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		return nil, fmt.Errorf("%w: event_type: %v", errPoison, err)
	}

	aggregateType, err := enums.ParseOutboxAggregateType(strings.TrimSpace(msg.Attributes["aggregate_type"]))
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate_type: %v", errPoison, err)
	}

	aggregateID := strings.TrimSpace(stored.AggregateID)
	if aggregateID == "" {
		aggregateID = strings.TrimSpace(msg.Attributes["aggregate_id"])
	}
	if aggregateID == "" {
		return nil, fmt.Errorf("%w: aggregate_id missing", errPoison)
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = strings.TrimSpace(msg.Attributes["event_id"])
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: event_id: %v", errPoison, err)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if created := strings.TrimSpace(msg.Attributes["created_at"]); created != "" {
			if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
				occurredAt = parsed
			}
		}
	}

	version := stored.Version
	if version <= 0 {
		version = 1
	}

	return &Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       version,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Data:          stored.Data,
	}, nil
}
