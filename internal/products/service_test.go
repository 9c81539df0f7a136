package product

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/dbtest"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

var testVendor = auth.Identity{UserID: "vendor-1", Role: enums.RoleVendor, University: "UNILAG"}

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	return svc, client
}

func mustCreate(t *testing.T, svc Service, title string, methods ...enums.DeliveryMethod) *ProductDTO {
	t.Helper()
	if len(methods) == 0 {
		methods = []enums.DeliveryMethod{enums.DeliveryMethodDelivery, enums.DeliveryMethodPickup}
	}
	p, err := svc.Create(context.Background(), testVendor, CreateProductInput{
		Title:           title,
		Category:        "books",
		Price:           3000,
		DeliveryMethods: methods,
	})
	require.NoError(t, err)
	return p
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newTestService(t)

	p := mustCreate(t, svc, "  Calculus textbook ", enums.DeliveryMethodPickup, enums.DeliveryMethodPickup)
	assert.Equal(t, "Calculus textbook", p.Title)
	assert.Equal(t, enums.ProductStatusAvailable, p.Status)
	assert.Equal(t, "UNILAG", p.University)
	assert.Equal(t, []enums.DeliveryMethod{enums.DeliveryMethodPickup}, p.DeliveryMethods)

	got, err := svc.Get(context.Background(), uuid.MustParse(p.ID))
	require.NoError(t, err)
	assert.Equal(t, p.DeliveryMethods, got.DeliveryMethods)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	valid := CreateProductInput{Title: "Lamp", Category: "home", Price: 100, DeliveryMethods: []enums.DeliveryMethod{enums.DeliveryMethodPickup}}

	cases := map[string]func(in *CreateProductInput){
		"missing title":    func(in *CreateProductInput) { in.Title = " " },
		"missing category": func(in *CreateProductInput) { in.Category = "" },
		"zero price":       func(in *CreateProductInput) { in.Price = 0 },
		"price over cap":   func(in *CreateProductInput) { in.Price = MaxPrice + 1 },
		"huge price":       func(in *CreateProductInput) { in.Price = 1<<62 + 1 },
		"no methods":       func(in *CreateProductInput) { in.DeliveryMethods = nil },
		"unknown method":   func(in *CreateProductInput) { in.DeliveryMethods = []enums.DeliveryMethod{"drone"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid
			mutate(&in)
			_, err := svc.Create(ctx, testVendor, in)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	buyer := auth.Identity{UserID: "buyer-1", Role: enums.RoleBuyer}
	_, err := svc.Create(ctx, buyer, valid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestIsAvailable(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	p := mustCreate(t, svc, "Desk fan")
	id := uuid.MustParse(p.ID)

	ok, err := svc.IsAvailable(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.MarkSold(ctx, tx, []uuid.UUID{id})
	}))

	ok, err = svc.IsAvailable(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsAvailable(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMarkSoldIsAllOrNothing(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	first := uuid.MustParse(mustCreate(t, svc, "Kettle").ID)
	second := uuid.MustParse(mustCreate(t, svc, "Toaster").ID)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.MarkSold(ctx, tx, []uuid.UUID{second, second})
	}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.MarkSold(ctx, tx, []uuid.UUID{first, second})
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeProductUnavailable))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []string{second.String()}, details["productIds"])

	stillAvailable, err := svc.IsAvailable(ctx, first)
	require.NoError(t, err)
	assert.True(t, stillAvailable, "the available item must not be sold when the unit fails")

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.MarkSold(ctx, tx, []uuid.UUID{uuid.New()})
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListAvailableFiltersAndPages(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, "A")
	mustCreate(t, svc, "B")
	mustCreate(t, svc, "C")
	other := auth.Identity{UserID: "vendor-2", Role: enums.RoleVendor, University: "UI"}
	_, err := svc.Create(ctx, other, CreateProductInput{Title: "D", Category: "books", Price: 10, DeliveryMethods: []enums.DeliveryMethod{enums.DeliveryMethodPickup}})
	require.NoError(t, err)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.MarkSold(ctx, tx, []uuid.UUID{uuid.MustParse(a.ID)})
	}))

	list, err := svc.ListAvailable(ctx, ListFilter{University: "UNILAG"}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	require.NotEmpty(t, list.NextCursor)

	rest, err := svc.ListAvailable(ctx, ListFilter{University: "UNILAG"}, pagination.Params{Limit: 5, Cursor: list.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Products, 1)
	assert.NotEqual(t, list.Products[0].ID, rest.Products[0].ID)
	assert.Empty(t, rest.NextCursor)

	byVendor, err := svc.ListAvailable(ctx, ListFilter{VendorID: "vendor-2"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, byVendor.Products, 1)
	assert.Equal(t, "D", byVendor.Products[0].Title)
}
