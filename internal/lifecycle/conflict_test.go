package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/orders"
	product "github.com/angelmondragon/univend-backend/internal/products"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
)

// staleReads hands out one outdated read per armed entry, so a unit passes
// its guards on a row that another unit has already changed and committed.
// The conditional write that follows then matches nothing.
type staleReads struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	available bool
}

// serveOrder makes the next FindByID for id return snapshot. A nil
// snapshot makes that lookup report the order as missing.
func (s *staleReads) serveOrder(id uuid.UUID, snapshot *models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders == nil {
		s.orders = map[uuid.UUID]*models.Order{}
	}
	s.orders[id] = snapshot
}

// serveAvailable makes the next product batch read report every row as
// available.
func (s *staleReads) serveAvailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = true
}

func (s *staleReads) takeOrder(id uuid.UUID) (*models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if ok {
		delete(s.orders, id)
	}
	return order, ok
}

func (s *staleReads) takeAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	armed := s.available
	s.available = false
	return armed
}

func (s *staleReads) drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders) == 0 && !s.available
}

type staleOrders struct {
	orders.Repository
	reads *staleReads
}

func (r *staleOrders) WithTx(tx *gorm.DB) orders.Repository {
	return &staleOrders{Repository: r.Repository.WithTx(tx), reads: r.reads}
}

func (r *staleOrders) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if snapshot, ok := r.reads.takeOrder(id); ok {
		if snapshot == nil {
			return nil, nil
		}
		clone := *snapshot
		clone.Items = append([]models.OrderItem(nil), snapshot.Items...)
		return &clone, nil
	}
	return r.Repository.FindByID(ctx, id)
}

type staleProducts struct {
	product.Repository
	reads *staleReads
}

func (r *staleProducts) WithTx(tx *gorm.DB) product.Repository {
	return &staleProducts{Repository: r.Repository.WithTx(tx), reads: r.reads}
}

func (r *staleProducts) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	rows, err := r.Repository.FindByIDs(ctx, ids)
	if err != nil || !r.reads.takeAvailable() {
		return rows, err
	}
	for i := range rows {
		rows[i].Status = enums.ProductStatusAvailable
	}
	return rows, nil
}

func newStaleFixture(t *testing.T, startingBalance int64) (*fixture, *staleReads) {
	t.Helper()
	reads := &staleReads{}
	f := newFixtureWith(t, startingBalance, fixtureOpts{
		orders: func(repo orders.Repository) orders.Repository {
			return &staleOrders{Repository: repo, reads: reads}
		},
		products: func(repo product.Repository) product.Repository {
			return &staleProducts{Repository: repo, reads: reads}
		},
	})
	return f, reads
}

func TestStaleStatusReadRestartsIntoInvalidState(t *testing.T) {
	ctx := context.Background()
	f, reads := newStaleFixture(t, 10000)
	productID := f.listProduct(t, 2000)
	orderID := f.place(t, buyer, enums.DeliveryMethodPickup, productID)
	pending := f.order(t, orderID)

	_, err := f.engine.RejectOrder(ctx, orderID, vendor)
	require.NoError(t, err)

	reads.serveOrder(orderID, pending)
	_, err = f.engine.AcceptOrder(ctx, orderID, vendor)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	assert.True(t, reads.drained(), "the first attempt read the outdated order")

	assert.Equal(t, int64(10000), f.balance(t, buyer.UserID))
	assert.Empty(t, f.transactions(t, buyer.UserID))
	assert.Equal(t, enums.OrderStatusRejected, f.order(t, orderID).Status)
	assert.Equal(t, enums.ProductStatusAvailable, f.productStatus(t, productID))
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced, enums.EventOrderRejected}, f.eventTypes(t, orderID))
}

func TestStaleClaimReadLosesToCommittedRider(t *testing.T) {
	ctx := context.Background()
	f, reads := newStaleFixture(t, 10000)
	productID := f.listProduct(t, 2000)
	orderID := f.place(t, buyer, enums.DeliveryMethodDelivery, productID)
	_, err := f.engine.AcceptOrder(ctx, orderID, vendor)
	require.NoError(t, err)
	unclaimed := f.order(t, orderID)

	_, err = f.engine.AcceptDelivery(ctx, orderID, riderB)
	require.NoError(t, err)

	reads.serveOrder(orderID, unclaimed)
	_, err = f.engine.AcceptDelivery(ctx, orderID, riderA)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInvalidState, pkgerrors.CodeOf(err))
	assert.True(t, reads.drained())

	order := f.order(t, orderID)
	assert.Equal(t, enums.OrderStatusOutForDelivery, order.Status)
	require.NotNil(t, order.RiderID)
	assert.Equal(t, riderB.UserID, *order.RiderID)
}

func TestStaleProductReadFailsAcceptWithoutDebit(t *testing.T) {
	ctx := context.Background()
	f, reads := newStaleFixture(t, 10000)
	productID := f.listProduct(t, 2000)
	first := f.place(t, buyer, enums.DeliveryMethodPickup, productID)
	second := f.place(t, buyerTwo, enums.DeliveryMethodPickup, productID)

	_, err := f.engine.AcceptOrder(ctx, first, vendor)
	require.NoError(t, err)

	reads.serveAvailable()
	_, err = f.engine.AcceptOrder(ctx, second, vendor)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeProductUnavailable, pkgerrors.CodeOf(err))
	assert.True(t, reads.drained(), "the first attempt saw the product as available")

	assert.Equal(t, int64(10000), f.balance(t, buyerTwo.UserID))
	assert.Empty(t, f.transactions(t, buyerTwo.UserID))
	order := f.order(t, second)
	assert.Equal(t, enums.OrderStatusPendingConfirmation, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced}, f.eventTypes(t, second))
}

func TestPlaceWithRacingOrderIDIsConflict(t *testing.T) {
	ctx := context.Background()
	f, reads := newStaleFixture(t, 10000)
	productID := f.listProduct(t, 1000)
	orderID := uuid.New()
	input := PlaceOrderInput{
		OrderID:        &orderID,
		Buyer:          buyer,
		Items:          []CartLine{{ProductID: productID, Quantity: 1}},
		DeliveryMethod: enums.DeliveryMethodPickup,
	}
	_, err := f.engine.PlaceOrder(ctx, input)
	require.NoError(t, err)

	// The existence check misses the row, so the insert is what collides.
	reads.serveOrder(orderID, nil)
	_, err = f.engine.PlaceOrder(ctx, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.True(t, reads.drained())
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced}, f.eventTypes(t, orderID))
}

func TestPlaceOrderRejectsTotalOutsideInt64(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10000)
	productID := f.listProduct(t, 1000)
	// A row written before the listing price cap existed.
	require.NoError(t, f.client.DB().Model(&models.Product{}).
		Where("id = ?", productID).
		Update("price", int64(1<<62+1)).Error)

	_, err := f.engine.PlaceOrder(ctx, PlaceOrderInput{
		Buyer:          buyer,
		Items:          []CartLine{{ProductID: productID, Quantity: 4}},
		DeliveryMethod: enums.DeliveryMethodPickup,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, orders.ErrAmountOverflow)

	var count int64
	require.NoError(t, f.client.DB().Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}
