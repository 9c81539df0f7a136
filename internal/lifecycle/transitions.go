package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/orders"
	"github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
)

const maxCancelReasonLength = 500

// AcceptOrder captures payment. The buyer debit, the items going sold and
// the status change commit together or not at all.
func (s *service) AcceptOrder(ctx context.Context, orderID uuid.UUID, vendor auth.Identity) (*orders.OrderDTO, error) {
	return s.apply(ctx, "accept_order", orderID, vendor, func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error) {
		if vendor.UserID != order.VendorID {
			return nil, forbidden("only the vendor can accept this order")
		}
		if order.Status != enums.OrderStatusPendingConfirmation {
			return nil, invalidState(order, "accept")
		}

		if _, err := s.wallets.Ledger(tx).Debit(ctx, wallet.Entry{
			UserID:            order.BuyerID,
			Amount:            order.Total,
			Description:       fmt.Sprintf("Payment for order %s", shortID(order.ID)),
			RelatedEntityType: enums.RelatedEntityOrder,
			RelatedEntityID:   order.ID.String(),
		}); err != nil {
			return nil, err
		}

		ids := make([]uuid.UUID, 0, len(order.Items))
		for _, item := range order.Items {
			ids = append(ids, item.ProductID)
		}
		if err := s.products.MarkSold(ctx, tx, ids); err != nil {
			return nil, err
		}

		previous := order.Status
		next := enums.OrderStatusPending
		if order.DeliveryMethod == enums.DeliveryMethodPickup {
			next = enums.OrderStatusReadyForPickup
		}
		if err := s.move(ctx, tx, order, map[string]any{
			"status":         next,
			"payment_status": enums.PaymentStatusPaid,
		}); err != nil {
			return nil, err
		}
		order.Status, order.PaymentStatus = next, enums.PaymentStatusPaid
		return orderEvent(enums.EventOrderAccepted, *order, previous, "", s.now()), nil
	})
}

// RejectOrder declines an order before any money moves.
func (s *service) RejectOrder(ctx context.Context, orderID uuid.UUID, vendor auth.Identity) (*orders.OrderDTO, error) {
	return s.apply(ctx, "reject_order", orderID, vendor, func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error) {
		if vendor.UserID != order.VendorID {
			return nil, forbidden("only the vendor can reject this order")
		}
		if order.Status != enums.OrderStatusPendingConfirmation {
			return nil, invalidState(order, "reject")
		}
		previous := order.Status
		if err := s.move(ctx, tx, order, map[string]any{"status": enums.OrderStatusRejected}); err != nil {
			return nil, err
		}
		order.Status = enums.OrderStatusRejected
		return orderEvent(enums.EventOrderRejected, *order, previous, "", s.now()), nil
	})
}

// AcceptDelivery assigns the rider to an unclaimed delivery order. Only one
// claim can succeed; later claimants see the order already out for
// delivery.
func (s *service) AcceptDelivery(ctx context.Context, orderID uuid.UUID, rider auth.Identity) (*orders.OrderDTO, error) {
	return s.apply(ctx, "accept_delivery", orderID, rider, func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error) {
		if rider.Role != enums.RoleRider {
			return nil, forbidden("only riders can claim deliveries")
		}
		if order.Status != enums.OrderStatusPending || order.DeliveryMethod != enums.DeliveryMethodDelivery || order.RiderID != nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "this delivery is no longer available").
				WithDetails(map[string]any{"orderId": order.ID.String(), "status": order.Status})
		}
		if !rider.SameUniversity(order.University) {
			return nil, forbidden("this delivery belongs to another university")
		}

		rows, err := s.orders.WithTx(tx).ClaimRider(ctx, order.ID, rider.UserID, s.now())
		if err != nil {
			return nil, fmt.Errorf("claim delivery: %w", err)
		}
		if rows == 0 {
			return nil, fmt.Errorf("claim order %s: %w", order.ID, db.ErrWriteConflict)
		}
		previous := order.Status
		riderID := rider.UserID
		order.Status, order.RiderID = enums.OrderStatusOutForDelivery, &riderID
		return orderEvent(enums.EventDeliveryClaimed, *order, previous, "", s.now()), nil
	})
}

// MarkPickedUp records that the assigned rider collected the items.
func (s *service) MarkPickedUp(ctx context.Context, orderID uuid.UUID, rider auth.Identity) (*orders.OrderDTO, error) {
	return s.apply(ctx, "mark_picked_up", orderID, rider, func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error) {
		if order.Status != enums.OrderStatusOutForDelivery {
			return nil, invalidState(order, "pick up")
		}
		if !assignedRider(order, rider) {
			return nil, forbidden("only the assigned rider can confirm pickup")
		}
		previous := order.Status
		if err := s.move(ctx, tx, order, map[string]any{"status": enums.OrderStatusProcessing}); err != nil {
			return nil, err
		}
		order.Status = enums.OrderStatusProcessing
		return orderEvent(enums.EventOrderPickedUp, *order, previous, "", s.now()), nil
	})
}

// MarkDelivered completes the order and pays out. The vendor receives the
// subtotal and, on delivery orders, the rider receives the delivery fee, in
// the same unit as the status change.
func (s *service) MarkDelivered(ctx context.Context, orderID uuid.UUID, actor auth.Identity) (*orders.OrderDTO, error) {
	return s.apply(ctx, "mark_delivered", orderID, actor, func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error) {
		switch order.Status {
		case enums.OrderStatusProcessing:
			if !assignedRider(order, actor) && actor.Role != enums.RoleAdmin {
				return nil, forbidden("only the assigned rider can confirm delivery")
			}
		case enums.OrderStatusReadyForPickup:
			if actor.UserID != order.VendorID && actor.UserID != order.BuyerID && actor.Role != enums.RoleAdmin {
				return nil, forbidden("only the buyer or vendor can confirm the handoff")
			}
		default:
			return nil, invalidState(order, "deliver")
		}

		ledger := s.wallets.Ledger(tx)
		if _, err := ledger.Credit(ctx, wallet.Entry{
			UserID:            order.VendorID,
			Amount:            order.Subtotal,
			Description:       fmt.Sprintf("Earnings from order %s", shortID(order.ID)),
			RelatedEntityType: enums.RelatedEntityOrder,
			RelatedEntityID:   order.ID.String(),
		}); err != nil {
			return nil, err
		}
		if order.DeliveryMethod == enums.DeliveryMethodDelivery && order.RiderID != nil && order.DeliveryFee > 0 {
			if _, err := ledger.Credit(ctx, wallet.Entry{
				UserID:            *order.RiderID,
				Amount:            order.DeliveryFee,
				Description:       fmt.Sprintf("Delivery fee for order %s", shortID(order.ID)),
				RelatedEntityType: enums.RelatedEntityOrder,
				RelatedEntityID:   order.ID.String(),
			}); err != nil {
				return nil, err
			}
		}

		previous := order.Status
		if err := s.move(ctx, tx, order, map[string]any{"status": enums.OrderStatusDelivered}); err != nil {
			return nil, err
		}
		order.Status = enums.OrderStatusDelivered
		return orderEvent(enums.EventOrderDelivered, *order, previous, "", s.now()), nil
	})
}

// CancelOrder ends an order before fulfilment. Buyers may withdraw an order
// the vendor has not confirmed yet. Once paid, only the vendor or an admin
// may cancel, and the buyer is refunded in full. Sold items stay sold.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor auth.Identity, reason string) (*orders.OrderDTO, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxCancelReasonLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "reason must be at most %d characters", maxCancelReasonLength)
	}
	return s.apply(ctx, "cancel_order", orderID, actor, func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error) {
		changes := map[string]any{"status": enums.OrderStatusCancelled}
		switch order.Status {
		case enums.OrderStatusPendingConfirmation:
			if actor.UserID != order.BuyerID && actor.Role != enums.RoleAdmin {
				return nil, forbidden("only the buyer can withdraw an unconfirmed order")
			}
		case enums.OrderStatusPending, enums.OrderStatusReadyForPickup:
			if actor.UserID != order.VendorID && actor.Role != enums.RoleAdmin {
				return nil, forbidden("only the vendor can cancel a confirmed order")
			}
			if _, err := s.wallets.Ledger(tx).Credit(ctx, wallet.Entry{
				UserID:            order.BuyerID,
				Amount:            order.Total,
				Description:       fmt.Sprintf("Refund for order %s", shortID(order.ID)),
				RelatedEntityType: enums.RelatedEntityOrder,
				RelatedEntityID:   order.ID.String(),
			}); err != nil {
				return nil, err
			}
			changes["payment_status"] = enums.PaymentStatusRefunded
		default:
			return nil, invalidState(order, "cancel")
		}
		if reason != "" {
			changes["cancel_reason"] = reason
		}

		previous := order.Status
		if err := s.move(ctx, tx, order, changes); err != nil {
			return nil, err
		}
		order.Status = enums.OrderStatusCancelled
		if status, ok := changes["payment_status"].(enums.PaymentStatus); ok {
			order.PaymentStatus = status
		}
		return orderEvent(enums.EventOrderCancelled, *order, previous, reason, s.now()), nil
	})
}

func assignedRider(order *models.Order, rider auth.Identity) bool {
	return order.RiderID != nil && *order.RiderID == rider.UserID
}
