// Package transition runs named atomic units against the database and
// retries them when a concurrent writer wins a conditional update.
package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/metrics"
)

const (
	defaultMaxConflictRetries = 5
	defaultBaseDelay          = 15 * time.Millisecond
	jitterPercent             = 30
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Func performs the reads, guards and writes of one transition. It may be
// invoked more than once, so it must not have effects outside tx.
type Func func(tx *gorm.DB) error

type Options struct {
	MaxConflictRetries uint64
	BaseDelay          time.Duration
}

// Runner executes transitions. The zero value is not usable; use NewRunner.
type Runner struct {
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.TransitionMetrics
	opts    Options
}

func NewRunner(tx txRunner, logg *logger.Logger, m *metrics.TransitionMetrics, opts Options) (*Runner, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.MaxConflictRetries == 0 {
		opts.MaxConflictRetries = defaultMaxConflictRetries
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	return &Runner{tx: tx, logg: logg, metrics: m, opts: opts}, nil
}

// Run executes fn inside a single transaction. Typed errors from fn roll the
// transaction back and are returned unchanged. Write conflicts re-run fn on a
// fresh transaction until the retry budget is spent. Anything else, including
// an exhausted budget, becomes a retryable TRANSITION_FAILED error.
func (r *Runner) Run(ctx context.Context, name string, fn Func) error {
	start := time.Now()
	backoff := retry.WithMaxRetries(
		r.opts.MaxConflictRetries,
		retry.WithJitterPercent(jitterPercent, retry.NewExponential(r.opts.BaseDelay)),
	)

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := r.tx.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if pkgerrors.As(err) != nil {
			return err
		}
		if db.IsRetryableConflict(err) {
			r.metrics.IncConflict(name)
			r.logg.Debug(r.logg.WithFields(ctx, map[string]any{"transition": name, "attempt": attempts}), "transition conflict, retrying")
			return retry.RetryableError(err)
		}
		return err
	})

	elapsed := time.Since(start)
	switch {
	case err == nil:
		r.metrics.Observe(name, metrics.OutcomeCommitted, elapsed)
		return nil
	case pkgerrors.As(err) != nil:
		r.metrics.Observe(name, metrics.OutcomeRejected, elapsed)
		return err
	}

	r.metrics.Observe(name, metrics.OutcomeFailed, elapsed)
	msg := fmt.Sprintf("%s failed", name)
	if db.IsRetryableConflict(err) {
		msg = fmt.Sprintf("%s gave up after %d conflicting attempts", name, attempts)
	} else if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("%s interrupted", name)
	}
	r.logg.Error(r.logg.WithField(ctx, "transition", name), msg, err)
	return pkgerrors.Wrap(pkgerrors.CodeTransitionFailed, err, msg)
}
