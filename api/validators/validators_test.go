package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

type cartLine struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=0,max=99"`
}

type cartBody struct {
	Items          []cartLine `json:"items" validate:"required,min=1,dive"`
	DeliveryMethod string     `json:"deliveryMethod" validate:"required,oneof=pickup delivery"`
}

func bodyRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details should be a field map, got %T", typed.Details())
	return details
}

func TestDecodeJSONBodyAcceptsValidCart(t *testing.T) {
	var body cartBody
	err := DecodeJSONBody(bodyRequest(`{"items":[{"productId":"`+uuid.NewString()+`","quantity":2}],"deliveryMethod":"pickup"}`), &body)
	require.NoError(t, err)
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].Quantity)
}

func TestDecodeJSONBodyReportsNestedFields(t *testing.T) {
	var body cartBody
	err := DecodeJSONBody(bodyRequest(`{"items":[{"productId":"nope","quantity":120}],"deliveryMethod":"drone"}`), &body)

	details := detailsOf(t, err)
	assert.Equal(t, "must be a valid UUID", details["items[0].productId"])
	assert.Equal(t, "must be at most 99", details["items[0].quantity"])
	assert.Equal(t, "must be one of: pickup delivery", details["deliveryMethod"])
}

func TestDecodeJSONBodyEmptyCart(t *testing.T) {
	var body cartBody
	err := DecodeJSONBody(bodyRequest(`{"items":[],"deliveryMethod":"pickup"}`), &body)

	details := detailsOf(t, err)
	assert.Equal(t, "must contain at least 1 item(s)", details["items"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: `{"items":[],"deliveryMethod":"pickup","coupon":"x"}`},
		{name: "trailing object", body: `{"deliveryMethod":"pickup"}{"deliveryMethod":"pickup"}`},
		{name: "not json", body: `items=1`},
		{name: "empty", body: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body cartBody
			err := DecodeJSONBody(bodyRequest(tt.body), &body)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func withRouteParam(r *http.Request, name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	r := withRouteParam(httptest.NewRequest(http.MethodGet, "/orders/"+id.String(), nil), "orderId", id.String())

	got, err := ParseUUIDParam(r, "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	bad := withRouteParam(httptest.NewRequest(http.MethodGet, "/orders/42", nil), "orderId", "42")
	_, err = ParseUUIDParam(bad, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseUUIDParam(httptest.NewRequest(http.MethodGet, "/orders/", nil), "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: pagination.DefaultLimit}, page)

	page, err = ParsePage(httptest.NewRequest(http.MethodGet, "/orders?limit=10&cursor=%20abc%20", nil))
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, page)

	for _, raw := range []string{"0", "101", "ten"} {
		_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/orders?limit="+raw, nil))
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "limit=%s", raw)
	}
}

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/products?category=%20%20Textbooks%20&unread=TRUE&flag=maybe", nil)

	assert.Equal(t, "Textbooks", QueryText(r, "category", 0))
	assert.Equal(t, "Text", QueryText(r, "category", 4))
	assert.Equal(t, "", QueryText(r, "vendor", 10))

	unread, err := QueryBool(r, "unread")
	require.NoError(t, err)
	assert.True(t, unread)

	missing, err := QueryBool(r, "absent")
	require.NoError(t, err)
	assert.False(t, missing)

	_, err = QueryBool(r, "flag")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
