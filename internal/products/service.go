package product

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

const maxTitleLength = 120

// MaxPrice caps a listing at 10,000,000.00 in minor units, which keeps any
// cart total well inside int64.
const MaxPrice int64 = 1_000_000_000

// Service is the product availability gate plus the vendor catalog surface.
type Service interface {
	Create(ctx context.Context, vendor auth.Identity, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	IsAvailable(ctx context.Context, id uuid.UUID) (bool, error)
	ListAvailable(ctx context.Context, filter ListFilter, params pagination.Params) (*ProductList, error)
	LoadTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	MarkSold(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	RecordRating(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating int) (*models.Product, error)
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Title           string
	Description     string
	Category        string
	Price           int64
	ImageURL        string
	DeliveryMethods []enums.DeliveryMethod
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Create(ctx context.Context, vendor auth.Identity, input CreateProductInput) (*ProductDTO, error) {
	if vendor.Role != enums.RoleVendor {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only vendors can list products")
	}
	methods, err := validateCreate(input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	product := &models.Product{
		ID:              uuid.New(),
		VendorID:        vendor.UserID,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		Category:        strings.TrimSpace(input.Category),
		Price:           input.Price,
		ImageURL:        strings.TrimSpace(input.ImageURL),
		DeliveryMethods: methods,
		Status:          enums.ProductStatusAvailable,
		University:      strings.TrimSpace(vendor.University),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func validateCreate(input CreateProductInput) ([]string, error) {
	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case len(title) > maxTitleLength:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "title must be at most %d characters", maxTitleLength)
	case strings.TrimSpace(input.Category) == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case input.Price <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be greater than zero")
	case input.Price > MaxPrice:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "price must be at most %d", MaxPrice)
	case len(input.DeliveryMethods) == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one delivery method is required")
	}

	seen := map[enums.DeliveryMethod]bool{}
	methods := make([]string, 0, len(input.DeliveryMethods))
	for _, m := range input.DeliveryMethods {
		if !m.IsValid() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid delivery method %q", m)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	return methods, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) IsAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	product, err := s.find(ctx, id)
	if err != nil {
		return false, err
	}
	return product.Status == enums.ProductStatusAvailable, nil
}

func (s *service) find(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
	}
	return product, nil
}

func (s *service) ListAvailable(ctx context.Context, filter ListFilter, params pagination.Params) (*ProductList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListAvailable(ctx, filter, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page, next := pagination.Page(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	list := &ProductList{Products: make([]ProductDTO, 0, len(page)), NextCursor: next}
	for _, p := range page {
		list.Products = append(list.Products, toProductDTO(p))
	}
	return list, nil
}

// LoadTx reads every product in ids inside tx. A missing product is NotFound.
func (s *service) LoadTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	distinct := distinctIDs(ids)
	rows, err := s.repo.WithTx(tx).FindByIDs(ctx, distinct)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for _, id := range distinct {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
		}
	}
	return byID, nil
}

// MarkSold must run inside the same transaction as the payment it belongs
// to. Already-sold items fail the whole unit; a row that changed between the
// read and the write surfaces as a retryable conflict.
func (s *service) MarkSold(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	distinct := distinctIDs(ids)
	if len(distinct) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "no products to mark sold")
	}
	products, err := s.LoadTx(ctx, tx, distinct)
	if err != nil {
		return err
	}

	var sold []string
	for _, id := range distinct {
		if products[id].Status != enums.ProductStatusAvailable {
			sold = append(sold, id.String())
		}
	}
	if len(sold) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeProductUnavailable, "%d product(s) already sold", len(sold)).
			WithDetails(map[string]any{"productIds": sold})
	}

	rows, err := s.repo.WithTx(tx).MarkSold(ctx, distinct)
	if err != nil {
		return fmt.Errorf("mark products sold: %w", err)
	}
	if rows != int64(len(distinct)) {
		return fmt.Errorf("marked %d of %d products sold: %w", rows, len(distinct), db.ErrWriteConflict)
	}
	return nil
}

// RecordRating counts a review inside the caller's transaction and returns
// the product with its updated aggregates.
func (s *service) RecordRating(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating int) (*models.Product, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	rows, err := repo.AddRating(ctx, id, rating)
	if err != nil {
		return nil, fmt.Errorf("record rating: %w", err)
	}
	if rows == 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
	}
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	if product == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", id)
	}
	return product, nil
}

func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
