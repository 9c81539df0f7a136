package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/univend-backend/internal/analytics/types"
	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

// ConsumerName scopes processed-event idempotency keys for analytics.
const ConsumerName = "analytics"

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error
}

// Router dispatches decoded events to the handler registered for their type.
type Router struct {
	handlers map[enums.OutboxEventType]consumers.Handler
	logg     *logger.Logger
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]consumers.Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	orders := newOrderEventHandler(writer, logg)
	handlers := map[enums.OutboxEventType]consumers.Handler{
		enums.EventOrderPlaced:     orders,
		enums.EventOrderAccepted:   orders,
		enums.EventOrderRejected:   orders,
		enums.EventDeliveryClaimed: orders,
		enums.EventOrderPickedUp:   orders,
		enums.EventOrderDelivered:  orders,
		enums.EventOrderCancelled:  orders,
		enums.EventWalletFunded:    newWalletFundedHandler(writer, logg),
		enums.EventReviewSubmitted: newReviewSubmittedHandler(writer, logg),
		enums.EventChatMessageSent: newChatMessageSentHandler(writer, logg),
	}

	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{handlers: handlers, logg: logg}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope consumers.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if envelope.Payload == nil {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	return handler.Handle(ctx, envelope)
}

// optionalString maps blank values to NULL columns.
func optionalString[S ~string](v S) *string {
	s := strings.TrimSpace(string(v))
	if s == "" {
		return nil
	}
	return &s
}

func int64Of[N ~int | ~int32 | ~int64](v N) *int64 {
	n := int64(v)
	return &n
}
