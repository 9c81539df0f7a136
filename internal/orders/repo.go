package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Repository persists orders and their item snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, changes map[string]any) (int64, error)
	ClaimRider(ctx context.Context, id uuid.UUID, riderID string, now time.Time) (int64, error)
	ListForBuyer(ctx context.Context, buyerID string, query ListQuery) ([]models.Order, error)
	ListForVendor(ctx context.Context, vendorID string, query ListQuery) ([]models.Order, error)
	ListForRider(ctx context.Context, riderID string, query ListQuery) ([]models.Order, error)
	ListAvailableDeliveries(ctx context.Context, university string, query ListQuery) ([]models.Order, error)
	FindStale(ctx context.Context, status enums.OrderStatus, before time.Time, limit int) ([]models.Order, error)
}

// ListQuery holds the shared listing inputs. A nil cursor starts from the
// newest order.
type ListQuery struct {
	Statuses []enums.OrderStatus
	Cursor   *pagination.Cursor
	Limit    int
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order and its items in one statement batch.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByID returns nil without error when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus applies changes only while the order is still in one of the
// from states. Zero rows affected means another writer got there first.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, changes map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(changes)
	return res.RowsAffected, res.Error
}

// ClaimRider assigns riderID to an unclaimed delivery order.
func (r *repository) ClaimRider(ctx context.Context, id uuid.UUID, riderID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND delivery_method = ? AND rider_id IS NULL",
			id, enums.OrderStatusPending, enums.DeliveryMethodDelivery).
		Updates(map[string]any{
			"rider_id":   riderID,
			"status":     enums.OrderStatusOutForDelivery,
			"updated_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListForBuyer(ctx context.Context, buyerID string, query ListQuery) ([]models.Order, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("buyer_id = ?", buyerID), query)
}

func (r *repository) ListForVendor(ctx context.Context, vendorID string, query ListQuery) ([]models.Order, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("vendor_id = ?", vendorID), query)
}

func (r *repository) ListForRider(ctx context.Context, riderID string, query ListQuery) ([]models.Order, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("rider_id = ?", riderID), query)
}

// ListAvailableDeliveries returns the claimable queue. A blank university
// does not filter.
func (r *repository) ListAvailableDeliveries(ctx context.Context, university string, query ListQuery) ([]models.Order, error) {
	base := r.db.WithContext(ctx).
		Where("status = ? AND delivery_method = ? AND rider_id IS NULL", enums.OrderStatusPending, enums.DeliveryMethodDelivery)
	if university != "" {
		base = base.Where("LOWER(university) = LOWER(?)", university)
	}
	query.Statuses = nil
	return r.list(ctx, base, query)
}

// FindStale returns the oldest orders in status created before the cutoff.
func (r *repository) FindStale(ctx context.Context, status enums.OrderStatus, before time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, before).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) list(ctx context.Context, base *gorm.DB, query ListQuery) ([]models.Order, error) {
	if len(query.Statuses) > 0 {
		base = base.Where("status IN ?", query.Statuses)
	}
	if query.Cursor != nil {
		base = base.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}
	limit := query.Limit
	if limit <= 0 {
		limit = pagination.LimitWithBuffer(0)
	}
	var rows []models.Order
	err := base.WithContext(ctx).
		Preload("Items", orderItemsByPosition).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func orderItemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
