package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// Order is a single-vendor purchase. Items are a snapshot taken at placement
// and are never rewritten.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         string               `gorm:"column:buyer_id;not null"`
	BuyerName       string               `gorm:"column:buyer_name;not null;default:''"`
	VendorID        string               `gorm:"column:vendor_id;not null"`
	RiderID         *string              `gorm:"column:rider_id"`
	Subtotal        int64                `gorm:"column:subtotal;not null"`
	DeliveryFee     int64                `gorm:"column:delivery_fee;not null"`
	Total           int64                `gorm:"column:total;not null"`
	Status          enums.OrderStatus    `gorm:"column:status;not null"`
	PaymentStatus   enums.PaymentStatus  `gorm:"column:payment_status;not null"`
	DeliveryMethod  enums.DeliveryMethod `gorm:"column:delivery_method;not null"`
	DeliveryAddress *string              `gorm:"column:delivery_address"`
	University      string               `gorm:"column:university;not null;default:''"`
	CancelReason    *string              `gorm:"column:cancel_reason"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one snapshotted cart line.
type OrderItem struct {
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;primaryKey"`
	Position  int       `gorm:"column:position;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Title     string    `gorm:"column:title;not null"`
	Price     int64     `gorm:"column:price;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	ImageURL  string    `gorm:"column:image_url;not null;default:''"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}
