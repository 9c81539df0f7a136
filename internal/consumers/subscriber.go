package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

// Handler applies one side effect for a decoded event.
type Handler interface {
	Handle(ctx context.Context, envelope Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type idempotencyChecker interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type payloadDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error)
}

// SubscriberParams wires one named consumer.
type SubscriberParams struct {
	Name         string
	Subscription receiver
	Handler      Handler
	Idempotency  idempotencyChecker
	Decoders     payloadDecoder
	Logger       *logger.Logger
}

// Subscriber consumes outbox events from Pub/Sub. Each event is handled at
// most once per consumer name; a failed handler releases its claim and nacks
// so the message is redelivered.
type Subscriber struct {
	name         string
	subscription receiver
	handler      Handler
	manager      idempotencyChecker
	decoders     payloadDecoder
	logg         *logger.Logger
}

func NewSubscriber(params SubscriberParams) (*Subscriber, error) {
	if strings.TrimSpace(params.Name) == "" {
		return nil, errors.New("consumer name is required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("%s subscription is required", params.Name)
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("%s handler is required", params.Name)
	}
	if params.Idempotency == nil {
		return nil, errors.New("idempotency manager is required")
	}
	if params.Decoders == nil {
		return nil, errors.New("decoder registry is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Subscriber{
		name:         params.Name,
		subscription: params.Subscription,
		handler:      params.Handler,
		manager:      params.Idempotency,
		decoders:     params.Decoders,
		logg:         params.Logger,
	}, nil
}

func (s *Subscriber) Name() string { return s.name }

// outcome tells Receive how to settle a message.
type outcome int

const (
	ack outcome = iota
	nack
)

// Run starts consuming messages until the context is canceled.
func (s *Subscriber) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		switch s.process(msgCtx, msg) {
		case nack:
			msg.Nack()
		default:
			msg.Ack()
		}
	})
}

// process acks poison messages since redelivery cannot fix them. Handler and
// claim failures nack.
func (s *Subscriber) process(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = s.logg.WithFields(ctx, map[string]any{"consumer": s.name, "message_id": msg.ID})

	envelope, err := parseEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping undeliverable event")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     envelope.EventID.String(),
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
		"occurred_at":  envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	if envelope.Payload, err = s.decoders.Decode(envelope.EventType, envelope.Version, envelope.Data); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping event with undecodable payload")
		return ack
	}

	claimed, err := s.manager.Claim(ctx, s.name, envelope.EventID)
	switch {
	case err != nil:
		s.logg.Error(ctx, "idempotency claim failed", err)
		return nack
	case !claimed:
		s.logg.Info(ctx, "event already processed")
		return ack
	}

	if err := s.handler.Handle(ctx, *envelope); err != nil {
		s.logg.Error(ctx, "handler error", err)
		if err := s.manager.Release(ctx, s.name, envelope.EventID); err != nil {
			s.logg.Error(ctx, "failed to release idempotency claim", err)
		}
		return nack
	}
	s.logg.Debug(ctx, "event handled")
	return ack
}
