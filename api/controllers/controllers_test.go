package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/internal/notifications"
	productsvc "github.com/angelmondragon/univend-backend/internal/products"
	walletsvc "github.com/angelmondragon/univend-backend/internal/wallet"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func request(method, target, body string, identity *auth.Identity, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()
	if identity != nil {
		ctx = middleware.WithIdentity(ctx, *identity)
	}
	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for k, v := range params {
			routeCtx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	env := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

var (
	vendorIdentity = auth.Identity{UserID: "vendor-1", Role: enums.RoleVendor, University: "Unilag"}
	buyerIdentity  = auth.Identity{UserID: "buyer-1", Role: enums.RoleBuyer, University: "Unilag"}
)

type stubProducts struct {
	created   *productsvc.CreateProductInput
	filter    productsvc.ListFilter
	available bool
}

func (s *stubProducts) Create(ctx context.Context, vendor auth.Identity, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	s.created = &input
	return &productsvc.ProductDTO{ID: uuid.NewString(), VendorID: vendor.UserID, Title: input.Title, Price: input.Price}, nil
}

func (s *stubProducts) Get(ctx context.Context, id uuid.UUID) (*productsvc.ProductDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProducts) IsAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.available, nil
}

func (s *stubProducts) ListAvailable(ctx context.Context, filter productsvc.ListFilter, params pagination.Params) (*productsvc.ProductList, error) {
	s.filter = filter
	return &productsvc.ProductList{Products: []productsvc.ProductDTO{}}, nil
}

func (s *stubProducts) LoadTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return nil, errors.New("not used")
}

func (s *stubProducts) MarkSold(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	return errors.New("not used")
}

func (s *stubProducts) RecordRating(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating int) (*models.Product, error) {
	return nil, errors.New("not used")
}

func TestVendorCreateProduct(t *testing.T) {
	svc := &stubProducts{}
	body := `{"title":" Desk lamp ","category":"electronics","price":6500,"deliveryMethods":["pickup","delivery"]}`

	rec := httptest.NewRecorder()
	VendorCreateProduct(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/products", body, &vendorIdentity, nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	require.Equal(t, "Desk lamp", svc.created.Title)
	require.Equal(t, []enums.DeliveryMethod{enums.DeliveryMethodPickup, enums.DeliveryMethodDelivery}, svc.created.DeliveryMethods)
}

func TestVendorCreateProductValidation(t *testing.T) {
	cases := map[string]string{
		"zero price":     `{"title":"Lamp","category":"electronics","price":0,"deliveryMethods":["pickup"]}`,
		"price over cap": `{"title":"Lamp","category":"electronics","price":1000000001,"deliveryMethods":["pickup"]}`,
		"no methods":     `{"title":"Lamp","category":"electronics","price":100,"deliveryMethods":[]}`,
		"unknown method": `{"title":"Lamp","category":"electronics","price":100,"deliveryMethods":["teleport"]}`,
		"missing title":  `{"category":"electronics","price":100,"deliveryMethods":["pickup"]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubProducts{}
			rec := httptest.NewRecorder()
			VendorCreateProduct(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/products", body, &vendorIdentity, nil))
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Nil(t, svc.created)
		})
	}
}

func TestListProductsDefaultsToCallerUniversity(t *testing.T) {
	svc := &stubProducts{}

	rec := httptest.NewRecorder()
	ListProducts(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/products?category=books", "", &buyerIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Unilag", svc.filter.University)
	require.Equal(t, "books", svc.filter.Category)

	rec = httptest.NewRecorder()
	ListProducts(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/products?university=UI&vendor=vendor-9", "", &buyerIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "UI", svc.filter.University)
	require.Equal(t, "vendor-9", svc.filter.VendorID)

	rec = httptest.NewRecorder()
	ListProducts(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/products?limit=1000", "", &buyerIdentity, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductAvailabilityAndLookup(t *testing.T) {
	productID := uuid.New().String()
	params := map[string]string{"productId": productID}
	svc := &stubProducts{available: true}

	rec := httptest.NewRecorder()
	ProductAvailability(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/", "", &buyerIdentity, params))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Available bool `json:"available"`
	}
	decodeData(t, rec, &out)
	require.True(t, out.Available)

	rec = httptest.NewRecorder()
	GetProduct(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/", "", &buyerIdentity, params))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type stubWallet struct {
	walletsvc.Service
	funded    *walletsvc.FundInput
	reconcile *walletsvc.Reconciliation
}

func (s *stubWallet) GetOrCreateWallet(ctx context.Context, userID string) (*walletsvc.WalletDTO, error) {
	return &walletsvc.WalletDTO{UserID: userID, Balance: 50000}, nil
}

func (s *stubWallet) Fund(ctx context.Context, input walletsvc.FundInput) (*walletsvc.TransactionDTO, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "funding amount must be positive")
	}
	s.funded = &input
	return &walletsvc.TransactionDTO{UserID: input.UserID, Amount: input.Amount, Type: enums.WalletTransactionCredit}, nil
}

func (s *stubWallet) ListTransactions(ctx context.Context, userID string, params pagination.Params) (*walletsvc.TransactionList, error) {
	return &walletsvc.TransactionList{Transactions: []walletsvc.TransactionDTO{}}, nil
}

func (s *stubWallet) Reconcile(ctx context.Context, userID string) (*walletsvc.Reconciliation, error) {
	return s.reconcile, nil
}

func TestGetWallet(t *testing.T) {
	rec := httptest.NewRecorder()
	GetWallet(&stubWallet{}, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/wallet", "", &buyerIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out walletsvc.WalletDTO
	decodeData(t, rec, &out)
	require.Equal(t, "buyer-1", out.UserID)
	require.Equal(t, int64(50000), out.Balance)

	rec = httptest.NewRecorder()
	GetWallet(&stubWallet{}, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/wallet", "", nil, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFundWallet(t *testing.T) {
	svc := &stubWallet{}

	rec := httptest.NewRecorder()
	FundWallet(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/wallet/fund", `{"amount":10000}`, &buyerIdentity, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.funded)
	require.Equal(t, "buyer-1", svc.funded.UserID)
	require.Equal(t, "buyer-1", svc.funded.Actor.UserID)
	require.Equal(t, string(enums.RoleBuyer), svc.funded.Actor.Role)

	rec = httptest.NewRecorder()
	FundWallet(&stubWallet{}, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/wallet/fund", `{"amount":-5}`, &buyerIdentity, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_AMOUNT")
}

func TestReconcileWallet(t *testing.T) {
	svc := &stubWallet{reconcile: &walletsvc.Reconciliation{UserID: "buyer-1", Balance: 100, ReplayedBalance: 90}}
	admin := auth.Identity{UserID: "admin-1", Role: enums.RoleAdmin}

	rec := httptest.NewRecorder()
	ReconcileWallet(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/wallet/reconcile", "", &admin, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	ReconcileWallet(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/wallet/reconcile?user_id=buyer-1", "", &admin, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out walletsvc.Reconciliation
	decodeData(t, rec, &out)
	require.False(t, out.Consistent)
}

type stubNotifications struct {
	params   notifications.ListParams
	marked   uuid.UUID
	device   *notifications.RegisterDeviceInput
	allCount int64
}

func (s *stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.params = params
	return &notifications.ListResult{Items: []notifications.NotificationDTO{}}, nil
}

func (s *stubNotifications) MarkRead(ctx context.Context, userID string, id uuid.UUID) error {
	s.marked = id
	return nil
}

func (s *stubNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.allCount, nil
}

func (s *stubNotifications) RegisterDevice(ctx context.Context, userID string, input notifications.RegisterDeviceInput) error {
	s.device = &input
	return nil
}

func TestNotificationsEndpoints(t *testing.T) {
	svc := &stubNotifications{allCount: 3}

	rec := httptest.NewRecorder()
	ListNotifications(svc, testLogger()).ServeHTTP(rec, request(http.MethodGet, "/api/v1/notifications?unread=true&limit=5", "", &buyerIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "buyer-1", svc.params.UserID)
	require.True(t, svc.params.UnreadOnly)
	require.Equal(t, 5, svc.params.Limit)

	id := uuid.New()
	rec = httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", "", &buyerIdentity, map[string]string{"notificationId": id.String()}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, id, svc.marked)

	rec = httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/", "", &buyerIdentity, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"updated":3`)
}

func TestRegisterDevice(t *testing.T) {
	svc := &stubNotifications{}

	rec := httptest.NewRecorder()
	RegisterDevice(svc, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/devices", `{"token":"fcm-token","platform":"android"}`, &buyerIdentity, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "fcm-token", svc.device.Token)

	rec = httptest.NewRecorder()
	RegisterDevice(&stubNotifications{}, testLogger()).ServeHTTP(rec, request(http.MethodPost, "/api/v1/devices", `{"token":"fcm-token","platform":"symbian"}`, &buyerIdentity, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"database": ok, "redis": ok}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dev", rec.Header().Get("X-Univend-Env"))

	rec = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"database": ok, "redis": down}, testLogger()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")
}
