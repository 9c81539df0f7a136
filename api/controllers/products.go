package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	productsvc "github.com/angelmondragon/univend-backend/internal/products"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

const maxFilterLength = 120

type createProductRequest struct {
	Title           string   `json:"title" validate:"required,max=120"`
	Description     string   `json:"description" validate:"max=2000"`
	Category        string   `json:"category" validate:"required,max=64"`
	Price           int64    `json:"price" validate:"gt=0,lte=1000000000"`
	ImageURL        string   `json:"imageUrl" validate:"omitempty,url"`
	DeliveryMethods []string `json:"deliveryMethods" validate:"required,min=1"`
}

func (p createProductRequest) toCreateInput() (productsvc.CreateProductInput, error) {
	methods := make([]enums.DeliveryMethod, 0, len(p.DeliveryMethods))
	for _, raw := range p.DeliveryMethods {
		method, err := enums.ParseDeliveryMethod(raw)
		if err != nil {
			return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method").
				WithDetails(map[string]any{"field": "deliveryMethods", "value": raw})
		}
		methods = append(methods, method)
	}
	return productsvc.CreateProductInput{
		Title:           strings.TrimSpace(p.Title),
		Description:     strings.TrimSpace(p.Description),
		Category:        strings.TrimSpace(p.Category),
		Price:           p.Price,
		ImageURL:        strings.TrimSpace(p.ImageURL),
		DeliveryMethods: methods,
	}, nil
}

// VendorCreateProduct lists a new product for the calling vendor.
func VendorCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("product"))
			return
		}
		vendor, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(err)
			return
		}
		input, err := payload.toCreateInput()
		if err != nil {
			fail(err)
			return
		}
		if product, err := svc.Create(r.Context(), vendor, input); err != nil {
			fail(err)
		} else {
			responses.WriteSuccessStatus(w, http.StatusCreated, product)
		}
	}
}

// ListProducts returns available products. University defaults to the
// caller's campus.
func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("product"))
			return
		}
		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			fail(err)
			return
		}

		filter := productsvc.ListFilter{
			University: validators.QueryText(r, "university", maxFilterLength),
			Category:   validators.QueryText(r, "category", maxFilterLength),
			VendorID:   validators.QueryText(r, "vendor", maxFilterLength),
		}
		if filter.University == "" {
			filter.University = caller.University
		}
		if list, err := svc.ListAvailable(r.Context(), filter, page); err != nil {
			fail(err)
		} else {
			responses.WriteSuccess(w, list)
		}
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return productLookup(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		return svc.Get(r.Context(), id)
	})
}

// ProductAvailability reports whether a product can still be ordered.
func ProductAvailability(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return productLookup(svc, logg, func(r *http.Request, id uuid.UUID) (any, error) {
		available, err := svc.IsAvailable(r.Context(), id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"productId": id.String(), "available": available}, nil
	})
}

// productLookup handles the routes keyed by the productId path parameter.
func productLookup(svc productsvc.Service, logg *logger.Logger, load func(*http.Request, uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("product"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			fail(err)
			return
		}
		if out, err := load(r, productID); err != nil {
			fail(err)
		} else {
			responses.WriteSuccess(w, out)
		}
	}
}

// errorReplier binds the request's error writer once per handler.
func errorReplier(w http.ResponseWriter, r *http.Request, logg *logger.Logger) func(error) {
	return func(err error) {
		responses.WriteError(r.Context(), logg, w, err)
	}
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
