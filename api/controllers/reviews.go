package controllers

import (
	"net/http"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	"github.com/angelmondragon/univend-backend/internal/reviews"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type submitReviewRequest struct {
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Comment      string `json:"comment" validate:"required,max=1000"`
	UserPhotoURL string `json:"userPhotoUrl" validate:"omitempty,url"`
}

// SubmitReview rates a product as the caller. Each user reviews a product
// once.
func SubmitReview(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("review"))
			return
		}
		reviewer, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			fail(err)
			return
		}
		var payload submitReviewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(err)
			return
		}
		review, err := svc.Submit(r.Context(), reviewer, reviews.SubmitInput{
			ProductID:    productID,
			Rating:       payload.Rating,
			Comment:      payload.Comment,
			UserPhotoURL: payload.UserPhotoURL,
		})
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

func ListReviews(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("review"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			fail(err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			fail(err)
			return
		}
		if list, err := svc.List(r.Context(), productID, page); err != nil {
			fail(err)
		} else {
			responses.WriteSuccess(w, list)
		}
	}
}
