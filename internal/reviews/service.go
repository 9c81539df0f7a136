// Package reviews records ratings of listings. A review and the product's
// running count and total commit in the same unit, so the average shown on
// a listing always matches its reviews.
package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/internal/transition"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
	"github.com/angelmondragon/univend-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/univend-backend/pkg/pagination"
)

const (
	MinRating        = 1
	MaxRating        = 5
	minCommentLength = 10
	maxCommentLength = 1000
)

type Service interface {
	Submit(ctx context.Context, reviewer auth.Identity, input SubmitInput) (*ReviewDTO, error)
	List(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error)
}

// SubmitInput is one rating of one product.
type SubmitInput struct {
	ProductID    uuid.UUID
	Rating       int
	Comment      string
	UserPhotoURL string
}

type transitionRunner interface {
	Run(ctx context.Context, name string, fn transition.Func) error
}

type catalog interface {
	LoadTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	RecordRating(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating int) (*models.Product, error)
}

type ServiceParams struct {
	Repository Repository
	Runner     transitionRunner
	Products   catalog
	Outbox     outbox.Emitter
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo     Repository
	runner   transitionRunner
	products catalog
	outbox   outbox.Emitter
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("reviews repository required")
	case params.Runner == nil:
		return nil, fmt.Errorf("transition runner required")
	case params.Products == nil:
		return nil, fmt.Errorf("product catalog required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repository,
		runner:   params.Runner,
		products: params.Products,
		outbox:   params.Outbox,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Submit records the review, folds it into the product's aggregates and
// stages review_submitted for the vendor's notification.
func (s *service) Submit(ctx context.Context, reviewer auth.Identity, input SubmitInput) (*ReviewDTO, error) {
	comment, err := validateSubmit(reviewer, input)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithField(ctx, "product_id", input.ProductID.String())

	var out ReviewDTO
	err = s.runner.Run(ctx, "submit_review", func(tx *gorm.DB) error {
		listings, err := s.products.LoadTx(ctx, tx, []uuid.UUID{input.ProductID})
		if err != nil {
			return err
		}
		listing := listings[input.ProductID]
		if listing.VendorID == reviewer.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "vendors cannot review their own listings")
		}

		review := &models.Review{
			ID:           uuid.New(),
			ProductID:    listing.ID,
			UserID:       reviewer.UserID,
			UserName:     strings.TrimSpace(reviewer.Name),
			UserPhotoURL: strings.TrimSpace(input.UserPhotoURL),
			Rating:       input.Rating,
			Comment:      comment,
			CreatedAt:    s.now(),
		}
		if err := s.repo.WithTx(tx).Create(ctx, review); err != nil {
			if db.IsUniqueViolation(err, uniqueReviewConstraint) {
				return pkgerrors.New(pkgerrors.CodeConflict, "you have already reviewed this product")
			}
			return fmt.Errorf("create review: %w", err)
		}
		updated, err := s.products.RecordRating(ctx, tx, listing.ID, review.Rating)
		if err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewSubmitted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   listing.ID.String(),
			Actor:         &outbox.ActorRef{UserID: reviewer.UserID, Role: reviewer.Role.String()},
			Data: payloads.ReviewSubmittedEvent{
				ReviewID:      review.ID.String(),
				ProductID:     listing.ID.String(),
				ProductTitle:  listing.Title,
				VendorID:      listing.VendorID,
				ReviewerID:    reviewer.UserID,
				Rating:        review.Rating,
				ReviewCount:   updated.ReviewCount,
				AverageRating: updated.AverageRating(),
			},
			OccurredAt: review.CreatedAt,
		}); err != nil {
			return fmt.Errorf("emit %s: %w", enums.EventReviewSubmitted, err)
		}

		out = toReviewDTO(*review)
		out.ReviewCount, out.AverageRating = updated.ReviewCount, updated.AverageRating()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "rating", out.Rating), "review submitted")
	return &out, nil
}

func validateSubmit(reviewer auth.Identity, input SubmitInput) (string, error) {
	if strings.TrimSpace(reviewer.UserID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "reviewer identity required")
	}
	if input.ProductID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Rating < MinRating || input.Rating > MaxRating {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "rating must be between %d and %d", MinRating, MaxRating)
	}
	comment := strings.TrimSpace(input.Comment)
	if n := utf8.RuneCountInString(comment); n < minCommentLength || n > maxCommentLength {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "comment must be %d to %d characters", minCommentLength, maxCommentLength).
			WithDetails(map[string]any{"field": "comment", "length": n})
	}
	return comment, nil
}

func (s *service) List(ctx context.Context, productID uuid.UUID, params pagination.Params) (*ReviewList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForProduct(ctx, productID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page, next := pagination.Page(rows, params.Limit, func(r models.Review) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	list := &ReviewList{Reviews: make([]ReviewDTO, 0, len(page)), NextCursor: next}
	for _, r := range page {
		list.Reviews = append(list.Reviews, toReviewDTO(r))
	}
	return list, nil
}
