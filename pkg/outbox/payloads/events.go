// Package payloads holds the data section of each published event.
package payloads

import (
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// OrderEvent is the snapshot carried by every order lifecycle event. Status
// and PaymentStatus are the values after the transition committed.
type OrderEvent struct {
	OrderID        string               `json:"orderId"`
	BuyerID        string               `json:"buyerId"`
	VendorID       string               `json:"vendorId"`
	RiderID        string               `json:"riderId,omitempty"`
	Status         enums.OrderStatus    `json:"status"`
	PreviousStatus enums.OrderStatus    `json:"previousStatus,omitempty"`
	PaymentStatus  enums.PaymentStatus  `json:"paymentStatus"`
	DeliveryMethod enums.DeliveryMethod `json:"deliveryMethod"`
	Subtotal       int64                `json:"subtotal"`
	DeliveryFee    int64                `json:"deliveryFee"`
	Total          int64                `json:"total"`
	ItemCount      int                  `json:"itemCount"`
	University     string               `json:"university,omitempty"`
	Reason         string               `json:"reason,omitempty"`
}

// WalletFundedEvent reports a top-up credited to a wallet.
type WalletFundedEvent struct {
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId"`
	Amount        int64  `json:"amount"`
	BalanceAfter  int64  `json:"balanceAfter"`
}

// ReviewSubmittedEvent reports a new review and the product's aggregates
// after it was counted.
type ReviewSubmittedEvent struct {
	ReviewID      string  `json:"reviewId"`
	ProductID     string  `json:"productId"`
	ProductTitle  string  `json:"productTitle"`
	VendorID      string  `json:"vendorId"`
	ReviewerID    string  `json:"reviewerId"`
	Rating        int     `json:"rating"`
	ReviewCount   int     `json:"reviewCount"`
	AverageRating float64 `json:"averageRating"`
}

// ChatMessageSentEvent reports a message to the participant who did not send
// it. Preview is a truncated copy of the text for push banners.
type ChatMessageSentEvent struct {
	ChatID       string `json:"chatId"`
	MessageID    string `json:"messageId"`
	ProductID    string `json:"productId"`
	ProductTitle string `json:"productTitle"`
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName,omitempty"`
	RecipientID  string `json:"recipientId"`
	Preview      string `json:"preview"`
}
