package product

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

// Repository persists product listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	MarkSold(ctx context.Context, ids []uuid.UUID) (int64, error)
	AddRating(ctx context.Context, id uuid.UUID, rating int) (int64, error)
	ListAvailable(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error)
}

// ListFilter narrows the catalog. Empty fields do not filter.
type ListFilter struct {
	University string
	Category   string
	VendorID   string
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID returns nil without error when the product does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// MarkSold flips only rows that are still available and reports how many
// changed.
func (r *repository) MarkSold(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ? AND status = ?", ids, enums.ProductStatusAvailable).
		Update("status", enums.ProductStatusSold)
	return res.RowsAffected, res.Error
}

// AddRating folds one review into the running aggregates without touching
// updated_at, which tracks listing edits.
func (r *repository) AddRating(ctx context.Context, id uuid.UUID, rating int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"review_count": gorm.Expr("review_count + 1"),
			"rating_total": gorm.Expr("rating_total + ?", rating),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListAvailable(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("status = ?", enums.ProductStatusAvailable)
	if filter.University != "" {
		query = query.Where("university = ?", filter.University)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.VendorID != "" {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if cursor != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Product
	err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
