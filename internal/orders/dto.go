package orders

import (
	"time"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
)

type OrderItemDTO struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// OrderDTO is the order shape returned by every lifecycle operation.
type OrderDTO struct {
	ID              string               `json:"id"`
	BuyerID         string               `json:"buyerId"`
	BuyerName       string               `json:"buyerName,omitempty"`
	VendorID        string               `json:"vendorId"`
	RiderID         *string              `json:"riderId,omitempty"`
	Items           []OrderItemDTO       `json:"items"`
	Subtotal        int64                `json:"subtotal"`
	DeliveryFee     int64                `json:"deliveryFee"`
	Total           int64                `json:"total"`
	Status          enums.OrderStatus    `json:"status"`
	PaymentStatus   enums.PaymentStatus  `json:"paymentStatus"`
	DeliveryMethod  enums.DeliveryMethod `json:"deliveryMethod"`
	DeliveryAddress *string              `json:"deliveryAddress,omitempty"`
	University      string               `json:"university,omitempty"`
	CancelReason    *string              `json:"cancelReason,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ToDTO maps a loaded order, items included, to its response shape.
func ToDTO(o models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID.String(),
			Title:     item.Title,
			Price:     item.Price,
			Quantity:  item.Quantity,
			ImageURL:  item.ImageURL,
		})
	}
	return OrderDTO{
		ID:              o.ID.String(),
		BuyerID:         o.BuyerID,
		BuyerName:       o.BuyerName,
		VendorID:        o.VendorID,
		RiderID:         o.RiderID,
		Items:           items,
		Subtotal:        o.Subtotal,
		DeliveryFee:     o.DeliveryFee,
		Total:           o.Total,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		DeliveryMethod:  o.DeliveryMethod,
		DeliveryAddress: o.DeliveryAddress,
		University:      o.University,
		CancelReason:    o.CancelReason,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
