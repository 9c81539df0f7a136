package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/univend-backend/internal/consumers"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/firebase"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
)

// ConsumerName scopes processed-event idempotency keys for this handler.
const ConsumerName = "notifications"

// PushSender delivers a push message to device tokens.
type PushSender interface {
	Send(ctx context.Context, push firebase.Push) (firebase.PushResult, error)
}

// Notifier turns lifecycle events into feed entries and push messages. Feed
// writes fail the handler so the event is redelivered; push failures are only
// logged.
type Notifier struct {
	repo Repository
	push PushSender
	logg *logger.Logger
}

// NewNotifier wires the handler. push may be nil when push delivery is off.
func NewNotifier(repo Repository, push PushSender, logg *logger.Logger) (*Notifier, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Notifier{repo: repo, push: push, logg: logg}, nil
}

func (n *Notifier) Handle(ctx context.Context, envelope consumers.Envelope) error {
	messages := messagesFor(envelope)
	if len(messages) == 0 {
		n.logg.Debug(ctx, "event produces no notifications")
		return nil
	}

	rows := make([]*models.Notification, len(messages))
	for i := range messages {
		rows[i] = &messages[i].notification
	}
	if err := n.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("create notifications for %s: %w", envelope.EventType, err)
	}

	if n.push != nil {
		for _, msg := range messages {
			n.sendPush(ctx, envelope, msg.notification)
		}
	}
	return nil
}

func (n *Notifier) sendPush(ctx context.Context, envelope consumers.Envelope, notification models.Notification) {
	logCtx := n.logg.WithField(ctx, "recipient", notification.UserID)

	tokens, err := n.repo.DeviceTokens(ctx, []string{notification.UserID})
	if err != nil {
		n.logg.Error(logCtx, "failed to load device tokens", err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	push := firebase.Push{
		Tokens: make([]string, 0, len(tokens)),
		Title:  notification.Title,
		Body:   notification.Message,
		Data: map[string]string{
			"eventType":      string(envelope.EventType),
			"notificationId": notification.ID.String(),
		},
	}
	for _, t := range tokens {
		push.Tokens = append(push.Tokens, t.Token)
	}
	if notification.Link != nil {
		push.Data["link"] = *notification.Link
	}

	result, err := n.push.Send(ctx, push)
	if err != nil {
		n.logg.Error(logCtx, "push delivery failed", err)
		return
	}
	if len(result.Stale) > 0 {
		if err := n.repo.DeleteDeviceTokens(ctx, result.Stale); err != nil {
			n.logg.Error(logCtx, "failed to prune stale device tokens", err)
		}
	}
	n.logg.Info(n.logg.WithFields(logCtx, map[string]any{
		"push_sent":   result.Sent,
		"push_failed": result.Failed,
		"push_stale":  len(result.Stale),
	}), "push delivered")
}

type message struct {
	notification models.Notification
}

func messagesFor(envelope consumers.Envelope) []message {
	switch payload := envelope.Payload.(type) {
	case *payloads.OrderEvent:
		return orderMessages(envelope.EventType, payload)
	case *payloads.WalletFundedEvent:
		return []message{newMessage(payload.UserID, enums.NotificationTypeWalletUpdate,
			"Wallet funded",
			fmt.Sprintf("Your wallet was credited with %d. New balance: %d.", payload.Amount, payload.BalanceAfter),
			"/wallet")}
	case *payloads.ReviewSubmittedEvent:
		return []message{newMessage(payload.VendorID, enums.NotificationTypeProductReview,
			"New review",
			fmt.Sprintf("%q received a %d-star review. Average rating is now %.1f from %d review(s).",
				payload.ProductTitle, payload.Rating, payload.AverageRating, payload.ReviewCount),
			"/products/"+payload.ProductID)}
	case *payloads.ChatMessageSentEvent:
		from := payload.SenderName
		if from == "" {
			from = "Someone"
		}
		return []message{newMessage(payload.RecipientID, enums.NotificationTypeChatMessage,
			fmt.Sprintf("%s about %q", from, payload.ProductTitle),
			payload.Preview,
			"/chat/"+payload.ChatID)}
	default:
		return nil
	}
}

func orderMessages(eventType enums.OutboxEventType, order *payloads.OrderEvent) []message {
	ref := shortRef(order.OrderID)
	link := "/orders/" + order.OrderID

	switch eventType {
	case enums.EventOrderPlaced:
		return []message{newMessage(order.VendorID, enums.NotificationTypeOrderUpdate,
			"New Order for Confirmation!",
			fmt.Sprintf("A customer has placed an order. Please confirm it in your dashboard. ID: %s...", ref),
			link)}
	case enums.EventOrderAccepted:
		body := fmt.Sprintf("Your order %s was accepted and %d has been charged.", ref, order.Total)
		if order.DeliveryMethod == enums.DeliveryMethodPickup {
			body = fmt.Sprintf("Your order %s was accepted and is ready for pickup.", ref)
		}
		return []message{newMessage(order.BuyerID, enums.NotificationTypeOrderUpdate, "Order accepted", body, link)}
	case enums.EventOrderRejected:
		return []message{newMessage(order.BuyerID, enums.NotificationTypeOrderUpdate,
			"Order rejected",
			fmt.Sprintf("The vendor could not take your order %s. You were not charged.", ref),
			link)}
	case enums.EventDeliveryClaimed:
		return []message{newMessage(order.BuyerID, enums.NotificationTypeDeliveryUpdate,
			"Rider assigned",
			fmt.Sprintf("A rider is on the way to collect your order %s.", ref),
			link)}
	case enums.EventOrderPickedUp:
		return []message{newMessage(order.BuyerID, enums.NotificationTypeDeliveryUpdate,
			"Order picked up",
			fmt.Sprintf("Your order %s has been picked up and is on its way.", ref),
			link)}
	case enums.EventOrderDelivered:
		return []message{
			newMessage(order.BuyerID, enums.NotificationTypeDeliveryUpdate,
				"Order delivered",
				fmt.Sprintf("Your order %s is complete.", ref),
				link),
			newMessage(order.VendorID, enums.NotificationTypeWalletUpdate,
				"Earnings received",
				fmt.Sprintf("Order %s is complete and %d was credited to your wallet.", ref, order.Subtotal),
				link),
		}
	case enums.EventOrderCancelled:
		body := fmt.Sprintf("Your order %s was cancelled.", ref)
		if order.PaymentStatus == enums.PaymentStatusRefunded {
			body = fmt.Sprintf("Your order %s was cancelled and %d was refunded to your wallet.", ref, order.Total)
		}
		if order.Reason != "" {
			body += " Reason: " + order.Reason
		}
		return []message{newMessage(order.BuyerID, enums.NotificationTypeOrderUpdate, "Order cancelled", body, link)}
	default:
		return nil
	}
}

func newMessage(userID string, kind enums.NotificationType, title, body, link string) message {
	return message{notification: models.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: body,
		Link:    &link,
	}}
}

func shortRef(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}
