package orders

import (
	"context"
	"net/http"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	"github.com/angelmondragon/univend-backend/internal/lifecycle"
	internalorders "github.com/angelmondragon/univend-backend/internal/orders"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// AvailableDeliveries lists paid delivery orders on the rider's campus that
// nobody has claimed.
func AvailableDeliveries(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return riderQueue(svc, logg, func(s internalorders.Service) riderListFunc { return s.AvailableDeliveries })
}

// MyDeliveries lists orders assigned to the calling rider.
func MyDeliveries(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return riderQueue(svc, logg, func(s internalorders.Service) riderListFunc { return s.RiderDeliveries })
}

// ClaimDelivery assigns the order to the calling rider. Only one rider wins.
func ClaimDelivery(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycleHandler(svc, logg, func(s lifecycle.Service) transitionFunc { return s.AcceptDelivery })
}

func PickedUp(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return lifecycleHandler(svc, logg, func(s lifecycle.Service) transitionFunc { return s.MarkPickedUp })
}

type riderListFunc func(ctx context.Context, rider auth.Identity, params pagination.Params) (*internalorders.OrderList, error)

func riderQueue(svc internalorders.Service, logg *logger.Logger, pick func(internalorders.Service) riderListFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		rider, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := pick(svc)(r.Context(), rider, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
