package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/orders"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
)

const maxCartLines = 50

// CartLine is one product the buyer wants, by reference. Title, price and
// image are snapshotted from the catalog at placement.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderInput describes a checkout. OrderID lets a client retry a
// placement without creating a second order.
type PlaceOrderInput struct {
	OrderID         *uuid.UUID
	Buyer           auth.Identity
	Items           []CartLine
	DeliveryMethod  enums.DeliveryMethod
	DeliveryAddress *string
}

// PlaceOrder records the order in pending-confirmation. Nothing is charged
// and no product changes status until the vendor accepts.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*orders.OrderDTO, error) {
	address, err := validatePlacement(&input)
	if err != nil {
		return nil, err
	}
	orderID := uuid.New()
	if input.OrderID != nil {
		orderID = *input.OrderID
	}

	return s.place(ctx, orderID, input, address)
}

func validatePlacement(input *PlaceOrderInput) (*string, error) {
	if strings.TrimSpace(input.Buyer.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if len(input.Items) > maxCartLines {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "cart may hold at most %d items", maxCartLines)
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for product %s must be at least 1", line.ProductID)
		}
		if seen[line.ProductID] {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "product %s appears more than once", line.ProductID)
		}
		seen[line.ProductID] = true
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid delivery method %q", input.DeliveryMethod)
	}
	if input.DeliveryMethod != enums.DeliveryMethodDelivery {
		return nil, nil
	}

	address := ""
	if input.DeliveryAddress != nil {
		address = strings.TrimSpace(*input.DeliveryAddress)
	}
	if address == "" {
		address = strings.TrimSpace(input.Buyer.Address)
	}
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a delivery address is required for delivery orders")
	}
	return &address, nil
}

func (s *service) place(ctx context.Context, orderID uuid.UUID, input PlaceOrderInput, address *string) (*orders.OrderDTO, error) {
	ctx = s.logg.WithOrder(ctx, orderID.String(), "place_order")
	var out *models.Order
	err := s.runner.Run(ctx, "place_order", func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		existing, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("check order id: %w", err)
		}
		if existing != nil {
			return pkgerrors.Newf(pkgerrors.CodeConflict, "order %s already exists", orderID)
		}

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			ids = append(ids, line.ProductID)
		}
		products, err := s.products.LoadTx(ctx, tx, ids)
		if err != nil {
			return err
		}

		order, err := s.buildOrder(orderID, input, address, products)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "order %s already exists", orderID)
			}
			return fmt.Errorf("create order: %w", err)
		}
		event := orderEvent(enums.EventOrderPlaced, *order, "", "", order.CreatedAt)
		event.Actor = actorRef(input.Buyer)
		if err := s.outbox.Emit(ctx, tx, *event); err != nil {
			return fmt.Errorf("emit %s: %w", event.EventType, err)
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(ctx, "order placed")
	dto := orders.ToDTO(*out)
	return &dto, nil
}

func (s *service) buildOrder(orderID uuid.UUID, input PlaceOrderInput, address *string, products map[uuid.UUID]models.Product) (*models.Order, error) {
	vendorID := products[input.Items[0].ProductID].VendorID
	items := make([]models.OrderItem, 0, len(input.Items))
	var sold []string
	for i, line := range input.Items {
		product := products[line.ProductID]
		if product.VendorID != vendorID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "all items must come from the same vendor")
		}
		if !product.Supports(input.DeliveryMethod) {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "%q is not available for %s", product.Title, input.DeliveryMethod)
		}
		if product.Status != enums.ProductStatusAvailable {
			sold = append(sold, product.ID.String())
		}
		items = append(items, models.OrderItem{
			OrderID:   orderID,
			Position:  i,
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Quantity:  line.Quantity,
			ImageURL:  product.ImageURL,
		})
	}
	if len(sold) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeProductUnavailable, "%d item(s) already sold", len(sold)).
			WithDetails(map[string]any{"productIds": sold})
	}
	if vendorID == input.Buyer.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendors cannot order their own products")
	}

	university := products[input.Items[0].ProductID].University
	if university == "" {
		university = strings.TrimSpace(input.Buyer.University)
	}
	now := s.now()
	order := &models.Order{
		ID:              orderID,
		BuyerID:         input.Buyer.UserID,
		BuyerName:       strings.TrimSpace(input.Buyer.Name),
		VendorID:        vendorID,
		Status:          enums.OrderStatusPendingConfirmation,
		PaymentStatus:   enums.PaymentStatusPending,
		DeliveryMethod:  input.DeliveryMethod,
		DeliveryAddress: address,
		University:      university,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := orders.Price(order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total is too large")
	}
	return order, nil
}
