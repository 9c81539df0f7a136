package enums

import "slices"

// NotificationType groups in-app notifications for filtering in the feed.
type NotificationType string

const (
	NotificationTypeOrderUpdate    NotificationType = "order_update"
	NotificationTypeDeliveryUpdate NotificationType = "delivery_update"
	NotificationTypeWalletUpdate   NotificationType = "wallet_update"
	NotificationTypeProductReview  NotificationType = "product_review"
	NotificationTypeChatMessage    NotificationType = "chat_message"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOrderUpdate,
	NotificationTypeDeliveryUpdate,
	NotificationTypeWalletUpdate,
	NotificationTypeProductReview,
	NotificationTypeChatMessage,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseEnum(validNotificationTypes, "notification type", value)
}
