package lifecycle

import (
	"time"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

// orderEvent snapshots order as it will look once the transition commits.
func orderEvent(eventType enums.OutboxEventType, order models.Order, previous enums.OrderStatus, reason string, at time.Time) *outbox.DomainEvent {
	data := payloads.OrderEvent{
		OrderID:        order.ID.String(),
		BuyerID:        order.BuyerID,
		VendorID:       order.VendorID,
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentStatus:  order.PaymentStatus,
		DeliveryMethod: order.DeliveryMethod,
		Subtotal:       order.Subtotal,
		DeliveryFee:    order.DeliveryFee,
		Total:          order.Total,
		ItemCount:      len(order.Items),
		University:     order.University,
		Reason:         reason,
	}
	if order.RiderID != nil {
		data.RiderID = *order.RiderID
	}
	return &outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID.String(),
		Data:          data,
		OccurredAt:    at,
	}
}
