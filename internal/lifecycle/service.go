// Package lifecycle is the order state machine. Each operation is one atomic
// unit that re-reads the order, checks its guards and applies the status
// change together with its ledger, catalog and outbox effects.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/orders"
	"github.com/angelmondragon/univend-backend/internal/transition"
	"github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
)

// Service is the write side of orders.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*orders.OrderDTO, error)
	AcceptOrder(ctx context.Context, orderID uuid.UUID, vendor auth.Identity) (*orders.OrderDTO, error)
	RejectOrder(ctx context.Context, orderID uuid.UUID, vendor auth.Identity) (*orders.OrderDTO, error)
	AcceptDelivery(ctx context.Context, orderID uuid.UUID, rider auth.Identity) (*orders.OrderDTO, error)
	MarkPickedUp(ctx context.Context, orderID uuid.UUID, rider auth.Identity) (*orders.OrderDTO, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID, actor auth.Identity) (*orders.OrderDTO, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor auth.Identity, reason string) (*orders.OrderDTO, error)
}

type transitionRunner interface {
	Run(ctx context.Context, name string, fn transition.Func) error
}

type productGate interface {
	LoadTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	MarkSold(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
}

type ledgerSource interface {
	Ledger(tx *gorm.DB) *wallet.Ledger
}

type ServiceParams struct {
	Runner   transitionRunner
	Orders   orders.Repository
	Products productGate
	Wallets  ledgerSource
	Outbox   outbox.Emitter
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	runner   transitionRunner
	orders   orders.Repository
	products productGate
	wallets  ledgerSource
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Runner == nil:
		return nil, fmt.Errorf("transition runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product gate required")
	case params.Wallets == nil:
		return nil, fmt.Errorf("wallet ledger required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		runner:   params.Runner,
		orders:   params.Orders,
		products: params.Products,
		wallets:  params.Wallets,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// step is the body of a transition on an existing order. It receives the
// order as read inside tx and returns the event to stage, or nil for none.
type step func(tx *gorm.DB, order *models.Order) (*outbox.DomainEvent, error)

// apply loads the order inside a fresh transaction, runs fn, stages its
// event and returns the committed order.
func (s *service) apply(ctx context.Context, name string, orderID uuid.UUID, actor auth.Identity, fn step) (*orders.OrderDTO, error) {
	ctx = s.logg.WithOrder(ctx, orderID.String(), name)
	var out *models.Order
	err := s.runner.Run(ctx, name, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}
		if order == nil {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
		}
		event, err := fn(tx, order)
		if err != nil {
			return err
		}
		if event != nil {
			event.Actor = actorRef(actor)
			if err := s.outbox.Emit(ctx, tx, *event); err != nil {
				return fmt.Errorf("emit %s: %w", event.EventType, err)
			}
		}
		out, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "status", out.Status.String()), "order transition committed")
	dto := orders.ToDTO(*out)
	return &dto, nil
}

// move runs the conditional status write. A miss means the order changed
// after it was read, so the unit restarts and the guards see the new state.
func (s *service) move(ctx context.Context, tx *gorm.DB, order *models.Order, changes map[string]any) error {
	changes["updated_at"] = s.now()
	rows, err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, []enums.OrderStatus{order.Status}, changes)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("order %s left %s: %w", order.ID, order.Status, db.ErrWriteConflict)
	}
	return nil
}

func invalidState(order *models.Order, action string) error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidState, "cannot %s an order in status %s", action, order.Status).
		WithDetails(map[string]any{"orderId": order.ID.String(), "status": order.Status})
}

func forbidden(msg string) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, msg)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func actorRef(actor auth.Identity) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
}
