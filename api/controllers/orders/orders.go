package orders

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	"github.com/angelmondragon/univend-backend/internal/lifecycle"
	internalorders "github.com/angelmondragon/univend-backend/internal/orders"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type placeOrderLine struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1,max=99"`
}

type placeOrderRequest struct {
	OrderID         *string          `json:"orderId" validate:"omitempty,uuid"`
	Items           []placeOrderLine `json:"items" validate:"required,min=1,dive"`
	DeliveryMethod  string           `json:"deliveryMethod" validate:"required"`
	DeliveryAddress *string          `json:"deliveryAddress" validate:"omitempty,max=500"`
}

func (p placeOrderRequest) toInput(buyer auth.Identity) (lifecycle.PlaceOrderInput, error) {
	method, err := enums.ParseDeliveryMethod(p.DeliveryMethod)
	if err != nil {
		return lifecycle.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method").
			WithDetails(map[string]any{"field": "deliveryMethod"})
	}

	input := lifecycle.PlaceOrderInput{
		Buyer:           buyer,
		Items:           make([]lifecycle.CartLine, 0, len(p.Items)),
		DeliveryMethod:  method,
		DeliveryAddress: p.DeliveryAddress,
	}
	if p.OrderID != nil {
		id, err := uuid.Parse(strings.TrimSpace(*p.OrderID))
		if err != nil {
			return lifecycle.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
		}
		input.OrderID = &id
	}
	for _, line := range p.Items {
		productID, err := uuid.Parse(strings.TrimSpace(line.ProductID))
		if err != nil {
			return lifecycle.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		input.Items = append(input.Items, lifecycle.CartLine{ProductID: productID, Quantity: line.Quantity})
	}
	return input, nil
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Place records a new order in pending-confirmation for the calling buyer.
func Place(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order lifecycle unavailable"))
			return
		}

		buyer, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(buyer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns the caller's orders. ?as=vendor switches to orders placed with
// the caller.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		viewer, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req := internalorders.ListRequest{Params: params}
		switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("as"))) {
		case "", "buyer":
		case "vendor":
			req.AsVendor = true
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "as must be buyer or vendor"))
			return
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			req.Status = &status
		}

		list, err := svc.List(r.Context(), viewer, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order to a party of it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		viewer, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), viewer, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type transitionFunc func(ctx context.Context, orderID uuid.UUID, actor auth.Identity) (*internalorders.OrderDTO, error)

func runTransition(w http.ResponseWriter, r *http.Request, logg *logger.Logger, fn transitionFunc) {
	actor, err := middleware.RequireIdentity(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}

	order, err := fn(r.Context(), orderID, actor)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, order)
}

func lifecycleHandler(svc lifecycle.Service, logg *logger.Logger, pick func(lifecycle.Service) transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order lifecycle unavailable"))
			return
		}
		runTransition(w, r, logg, pick(svc))
	}
}

// Accept charges the buyer and moves the order to pending.
func Accept(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycleHandler(svc, logg, func(s lifecycle.Service) transitionFunc { return s.AcceptOrder })
}

func Reject(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycleHandler(svc, logg, func(s lifecycle.Service) transitionFunc { return s.RejectOrder })
}

// Delivered completes the order and pays out vendor and rider.
func Delivered(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycleHandler(svc, logg, func(s lifecycle.Service) transitionFunc { return s.MarkDelivered })
}

// Cancel accepts an optional JSON body carrying a reason.
func Cancel(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order lifecycle unavailable"))
			return
		}

		var payload cancelOrderRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil && !errors.Is(err, io.EOF) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		runTransition(w, r, logg, func(ctx context.Context, orderID uuid.UUID, actor auth.Identity) (*internalorders.OrderDTO, error) {
			return svc.CancelOrder(ctx, orderID, actor, payload.Reason)
		})
	}
}
