package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Service exposes the read side of orders. Writes go through the lifecycle
// engine.
type Service interface {
	Get(ctx context.Context, viewer auth.Identity, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, viewer auth.Identity, req ListRequest) (*OrderList, error)
	AvailableDeliveries(ctx context.Context, rider auth.Identity, params pagination.Params) (*OrderList, error)
	RiderDeliveries(ctx context.Context, rider auth.Identity, params pagination.Params) (*OrderList, error)
}

// ListRequest selects the caller's orders. AsVendor lists orders placed with
// the caller instead of by the caller.
type ListRequest struct {
	AsVendor bool
	Status   *enums.OrderStatus
	Params   pagination.Params
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, viewer auth.Identity, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", id)
	}
	if !CanView(viewer, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to this user")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// CanView reports whether viewer is a party to order. Riders may also see
// orders waiting in their university's delivery queue.
func CanView(viewer auth.Identity, order *models.Order) bool {
	switch {
	case viewer.Role == enums.RoleAdmin:
		return true
	case viewer.UserID == order.BuyerID, viewer.UserID == order.VendorID:
		return true
	case order.RiderID != nil && *order.RiderID == viewer.UserID:
		return true
	case viewer.Role == enums.RoleRider && claimable(order):
		return viewer.SameUniversity(order.University)
	}
	return false
}

func claimable(order *models.Order) bool {
	return order.Status == enums.OrderStatusPending &&
		order.DeliveryMethod == enums.DeliveryMethodDelivery &&
		order.RiderID == nil
}

func (s *service) List(ctx context.Context, viewer auth.Identity, req ListRequest) (*OrderList, error) {
	query, err := listQuery(req.Params)
	if err != nil {
		return nil, err
	}
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid status %q", *req.Status)
		}
		query.Statuses = []enums.OrderStatus{*req.Status}
	}

	var rows []models.Order
	if req.AsVendor {
		if viewer.Role != enums.RoleVendor && viewer.Role != enums.RoleAdmin {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor role required")
		}
		rows, err = s.repo.ListForVendor(ctx, viewer.UserID, query)
	} else {
		rows, err = s.repo.ListForBuyer(ctx, viewer.UserID, query)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toList(rows, req.Params.Limit), nil
}

func (s *service) AvailableDeliveries(ctx context.Context, rider auth.Identity, params pagination.Params) (*OrderList, error) {
	query, err := listQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListAvailableDeliveries(ctx, rider.University, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list available deliveries")
	}
	return toList(rows, params.Limit), nil
}

func (s *service) RiderDeliveries(ctx context.Context, rider auth.Identity, params pagination.Params) (*OrderList, error) {
	query, err := listQuery(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForRider(ctx, rider.UserID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rider deliveries")
	}
	return toList(rows, params.Limit), nil
}

func listQuery(params pagination.Params) (ListQuery, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return ListQuery{Cursor: cursor, Limit: pagination.LimitWithBuffer(params.Limit)}, nil
}

func toList(rows []models.Order, limit int) *OrderList {
	page, next := pagination.Page(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderDTO, 0, len(page)), NextCursor: next}
	for _, o := range page {
		list.Orders = append(list.Orders, ToDTO(o))
	}
	return list
}
