package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/univend-backend/internal/orders"
	"github.com/angelmondragon/univend-backend/pkg/auth"
	"github.com/angelmondragon/univend-backend/pkg/db/models"
	"github.com/angelmondragon/univend-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

const (
	OrderConfirmationTTLJobName = "order_confirmation_ttl"

	defaultConfirmationTTL = 48 * time.Hour
	defaultStaleBatchSize  = 100
	confirmationTTLReason  = "vendor did not confirm the order in time"
)

// OrderConfirmationTTLJobParams configure the job that cancels orders the
// vendor never confirmed.
type OrderConfirmationTTLJobParams struct {
	Logger    *logger.Logger
	Orders    staleOrderReader
	Lifecycle orderCanceller
	TTL       time.Duration
	BatchSize int
}

type staleOrderReader interface {
	FindStale(ctx context.Context, status enums.OrderStatus, before time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor auth.Identity, reason string) (*orders.OrderDTO, error)
}

// NewOrderConfirmationTTLJob builds the pending-confirmation expiry job.
func NewOrderConfirmationTTLJob(params OrderConfirmationTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("lifecycle service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultConfirmationTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultStaleBatchSize
	}
	return &orderConfirmationTTLJob{
		logg:      params.Logger,
		orders:    params.Orders,
		lifecycle: params.Lifecycle,
		ttl:       ttl,
		batchSize: batch,
		now:       time.Now,
	}, nil
}

type orderConfirmationTTLJob struct {
	logg      *logger.Logger
	orders    staleOrderReader
	lifecycle orderCanceller
	ttl       time.Duration
	batchSize int
	now       func() time.Time
}

func (j *orderConfirmationTTLJob) Name() string { return OrderConfirmationTTLJobName }

// Run cancels one batch of stale orders. Each cancel goes through the
// lifecycle engine so an order the vendor accepted in the meantime is left
// alone.
func (j *orderConfirmationTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.FindStale(ctx, enums.OrderStatusPendingConfirmation, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale orders: %w", err)
	}

	var errs error
	cancelled, skipped := 0, 0
	for _, order := range stale {
		orderCtx := j.logg.WithOrder(ctx, order.ID.String(), "cancel_order")
		_, err := j.lifecycle.CancelOrder(orderCtx, order.ID, auth.System(), confirmationTTLReason)
		switch {
		case err == nil:
			cancelled++
		case pkgerrors.IsCode(err, pkgerrors.CodeInvalidState):
			skipped++
			j.logg.Debug(orderCtx, "order moved on before expiry")
		default:
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"found":     len(stale),
		"cancelled": cancelled,
		"skipped":   skipped,
	})
	j.logg.Info(logCtx, "order confirmation ttl sweep complete")
	return errs
}
