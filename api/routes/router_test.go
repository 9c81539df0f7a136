package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/univend-backend/api/controllers"
	walletsvc "github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type tokenVerifier map[string]auth.Identity

func (v tokenVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	identity, ok := v[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return &identity, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type walletStub struct {
	walletsvc.Service
}

func (walletStub) GetOrCreateWallet(_ context.Context, userID string) (*walletsvc.WalletDTO, error) {
	return &walletsvc.WalletDTO{UserID: userID, Balance: 50000}, nil
}

func newTestRouter() http.Handler {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	return NewRouter(Dependencies{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard}),
		Verifier: tokenVerifier{
			"buyer":  {UserID: "buyer-1", Role: enums.RoleBuyer, University: "Unilag"},
			"vendor": {UserID: "vendor-1", Role: enums.RoleVendor, University: "Unilag"},
			"rider":  {UserID: "rider-1", Role: enums.RoleRider, University: "Unilag"},
		},
		Readiness: map[string]controllers.Pinger{"database": okPinger{}},
		Gatherer:  prometheus.NewRegistry(),
		Wallets:   walletStub{},
	})
}

func serve(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter()

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live", "", "").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/ready", "", "").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/metrics", "", "").Code)
}

func TestAPIRequiresAuthentication(t *testing.T) {
	router := newTestRouter()

	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/wallet", "", "").Code)
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/wallet", "forged", "").Code)

	rec := serve(router, http.MethodGet, "/api/v1/wallet", "buyer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"userId":"buyer-1"`)
}

func TestRoleGates(t *testing.T) {
	router := newTestRouter()
	orderID := uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{name: "vendor cannot place orders", method: http.MethodPost, path: "/api/v1/orders", token: "vendor"},
		{name: "buyer cannot accept", method: http.MethodPost, path: "/api/v1/orders/" + orderID + "/accept", token: "buyer"},
		{name: "rider cannot reject", method: http.MethodPost, path: "/api/v1/orders/" + orderID + "/reject", token: "rider"},
		{name: "rider cannot cancel", method: http.MethodPost, path: "/api/v1/orders/" + orderID + "/cancel", token: "rider"},
		{name: "buyer cannot claim", method: http.MethodPost, path: "/api/v1/deliveries/" + orderID + "/claim", token: "buyer"},
		{name: "vendor cannot see rider queue", method: http.MethodGet, path: "/api/v1/deliveries/available", token: "vendor"},
		{name: "buyer cannot create products", method: http.MethodPost, path: "/api/v1/products", token: "buyer"},
		{name: "reconcile is admin only", method: http.MethodGet, path: "/api/v1/wallet/reconcile?user_id=buyer-1", token: "vendor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.path, tt.token, "")
			require.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestReviewRoutesMounted(t *testing.T) {
	router := newTestRouter()
	path := "/api/v1/products/" + uuid.NewString() + "/reviews"

	// No review service is wired, so a mounted route answers 500 rather than 404.
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := serve(router, method, path, "buyer", `{"rating":5,"comment":"Great value for money."}`)
		require.Equal(t, http.StatusInternalServerError, rec.Code, method)
	}
}

func TestChatRoutesMounted(t *testing.T) {
	router := newTestRouter()
	messages := "/api/v1/chats/" + uuid.NewString() + "/messages"

	cases := []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/chats", ""},
		{http.MethodPost, "/api/v1/chats", `{"productId":"` + uuid.NewString() + `"}`},
		{http.MethodGet, messages, ""},
		{http.MethodPost, messages, `{"text":"hello"}`},
	}
	for _, tc := range cases {
		rec := serve(router, tc.method, tc.path, "buyer", tc.body)
		require.Equal(t, http.StatusInternalServerError, rec.Code, tc.method+" "+tc.path)
	}
}

func TestPlaceOrderNeedsIdempotencyKey(t *testing.T) {
	router := NewRouter(Dependencies{
		Config: &config.Config{},
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Verifier: tokenVerifier{
			"buyer": {UserID: "buyer-1", Role: enums.RoleBuyer},
		},
		Idempotency: &memoryIdempotency{values: map[string]string{}},
	})

	rec := serve(router, http.MethodPost, "/api/v1/orders", "buyer", `{"items":[],"deliveryMethod":"pickup"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Idempotency-Key")
}

type memoryIdempotency struct {
	values map[string]string
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryIdempotency) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotency) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryIdempotency) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}
