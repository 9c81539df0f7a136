// Package types holds the BigQuery row shapes written by the analytics consumer.
package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// MarketplaceEventRow mirrors the marketplace_events BigQuery schema. One row
// is written per lifecycle or wallet event; amounts are whole currency units.
type MarketplaceEventRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	OrderID        *string            `bigquery:"order_id"`
	BuyerID        *string            `bigquery:"buyer_id"`
	VendorID       *string            `bigquery:"vendor_id"`
	RiderID        *string            `bigquery:"rider_id"`
	UserID         *string            `bigquery:"user_id"`
	University     *string            `bigquery:"university"`
	Status         *string            `bigquery:"status"`
	PreviousStatus *string            `bigquery:"previous_status"`
	PaymentStatus  *string            `bigquery:"payment_status"`
	DeliveryMethod *string            `bigquery:"delivery_method"`
	ItemCount      *int64             `bigquery:"item_count"`
	Subtotal       *int64             `bigquery:"subtotal"`
	DeliveryFee    *int64             `bigquery:"delivery_fee"`
	Total          *int64             `bigquery:"total"`
	GrossRevenue   *int64             `bigquery:"gross_revenue"`
	Refund         *int64             `bigquery:"refund"`
	WalletAmount   *int64             `bigquery:"wallet_amount"`
	ActorID        *string            `bigquery:"actor_id"`
	ActorRole      *string            `bigquery:"actor_role"`
	Reason         *string            `bigquery:"reason"`
	Payload        cbigquery.NullJSON `bigquery:"payload"`
}
