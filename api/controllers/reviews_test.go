package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/internal/reviews"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

type stubReviews struct {
	submitted *reviews.SubmitInput
	reviewer  auth.Identity
	listed    uuid.UUID
	failWith  error
}

func (s *stubReviews) Submit(ctx context.Context, reviewer auth.Identity, input reviews.SubmitInput) (*reviews.ReviewDTO, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	s.submitted, s.reviewer = &input, reviewer
	return &reviews.ReviewDTO{ID: uuid.NewString(), ProductID: input.ProductID.String(), Rating: input.Rating}, nil
}

func (s *stubReviews) List(ctx context.Context, productID uuid.UUID, params pagination.Params) (*reviews.ReviewList, error) {
	s.listed = productID
	return &reviews.ReviewList{Reviews: []reviews.ReviewDTO{}}, nil
}

func TestSubmitReview(t *testing.T) {
	svc := &stubReviews{}
	productID := uuid.New()
	params := map[string]string{"productId": productID.String()}
	body := `{"rating":4,"comment":"Solid lamp, bright enough for reading."}`

	rec := httptest.NewRecorder()
	SubmitReview(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", body, &buyerIdentity, params))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.submitted)
	require.Equal(t, productID, svc.submitted.ProductID)
	require.Equal(t, 4, svc.submitted.Rating)
	require.Equal(t, buyerIdentity.UserID, svc.reviewer.UserID)

	var out reviews.ReviewDTO
	decodeData(t, rec, &out)
	require.Equal(t, productID.String(), out.ProductID)
}

func TestSubmitReviewRejectsBadInput(t *testing.T) {
	productID := uuid.NewString()
	cases := map[string]struct {
		body   string
		params map[string]string
	}{
		"zero rating":     {`{"rating":0,"comment":"Solid lamp, bright enough."}`, map[string]string{"productId": productID}},
		"six stars":       {`{"rating":6,"comment":"Solid lamp, bright enough."}`, map[string]string{"productId": productID}},
		"missing comment": {`{"rating":3}`, map[string]string{"productId": productID}},
		"bad product id":  {`{"rating":3,"comment":"Solid lamp, bright enough."}`, map[string]string{"productId": "lamp"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubReviews{}
			rec := httptest.NewRecorder()
			SubmitReview(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", tc.body, &buyerIdentity, tc.params))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Nil(t, svc.submitted)
		})
	}
}

func TestSubmitReviewMapsConflict(t *testing.T) {
	svc := &stubReviews{failWith: pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")}
	params := map[string]string{"productId": uuid.NewString()}

	rec := httptest.NewRecorder()
	SubmitReview(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", `{"rating":3,"comment":"Second thoughts on this."}`, &buyerIdentity, params))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "CONFLICT")
}

func TestListReviews(t *testing.T) {
	svc := &stubReviews{}
	productID := uuid.New()

	rec := httptest.NewRecorder()
	ListReviews(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/?limit=5", "", &buyerIdentity, map[string]string{"productId": productID.String()}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, productID, svc.listed)
}
