package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateWallet  OutboxAggregateType = "wallet"
	AggregateProduct OutboxAggregateType = "product"
	AggregateChat    OutboxAggregateType = "chat"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateWallet,
	AggregateProduct,
	AggregateChat,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(validAggregateTypes, "aggregate type", value)
}

// OutboxEventType is emitted once per committed lifecycle transition, wallet
// top-up, product review or chat message.
type OutboxEventType string

const (
	EventOrderPlaced     OutboxEventType = "order_placed"
	EventOrderAccepted   OutboxEventType = "order_accepted"
	EventOrderRejected   OutboxEventType = "order_rejected"
	EventDeliveryClaimed OutboxEventType = "delivery_claimed"
	EventOrderPickedUp   OutboxEventType = "order_picked_up"
	EventOrderDelivered  OutboxEventType = "order_delivered"
	EventOrderCancelled  OutboxEventType = "order_cancelled"
	EventWalletFunded    OutboxEventType = "wallet_funded"
	EventReviewSubmitted OutboxEventType = "review_submitted"
	EventChatMessageSent OutboxEventType = "chat_message_sent"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderAccepted,
	EventOrderRejected,
	EventDeliveryClaimed,
	EventOrderPickedUp,
	EventOrderDelivered,
	EventOrderCancelled,
	EventWalletFunded,
	EventReviewSubmitted,
	EventChatMessageSent,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(validOutboxEventTypes, "event type", value)
}

// OutboxDLQErrorReason records why the relay gave up on a row.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
