package transition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/univend-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

type stubTx struct {
	calls int
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(nil)
}

func newRunner(t *testing.T, tx txRunner, retries uint64) *Runner {
	t.Helper()
	r, err := NewRunner(tx, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), nil, Options{
		MaxConflictRetries: retries,
		BaseDelay:          time.Millisecond,
	})
	require.NoError(t, err)
	return r
}

func TestRunRetriesConflictsUntilCommit(t *testing.T) {
	tx := &stubTx{}
	r := newRunner(t, tx, 3)

	attempts := 0
	err := r.Run(context.Background(), "accept_order", func(*gorm.DB) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("debit buyer: %w", db.ErrWriteConflict)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, tx.calls)
}

func TestRunPassesTypedErrorsThroughWithoutRetry(t *testing.T) {
	tx := &stubTx{}
	r := newRunner(t, tx, 3)

	err := r.Run(context.Background(), "accept_order", func(*gorm.DB) error {
		return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance too low")
	})

	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientFunds, pkgerrors.CodeOf(err))
	assert.Equal(t, 1, tx.calls)
}

func TestRunWrapsExhaustedConflictsAsTransitionFailed(t *testing.T) {
	tx := &stubTx{}
	r := newRunner(t, tx, 2)

	err := r.Run(context.Background(), "claim_delivery", func(*gorm.DB) error {
		return db.ErrWriteConflict
	})

	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeTransitionFailed, typed.Code())
	assert.True(t, errors.Is(err, db.ErrWriteConflict))
	assert.True(t, pkgerrors.MetadataFor(typed.Code()).Retryable)
	assert.Equal(t, 3, tx.calls)
}

func TestRunWrapsStorageFailures(t *testing.T) {
	tx := &stubTx{}
	r := newRunner(t, tx, 2)
	cause := errors.New("connection refused")

	err := r.Run(context.Background(), "mark_delivered", func(*gorm.DB) error { return cause })

	assert.Equal(t, pkgerrors.CodeTransitionFailed, pkgerrors.CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, tx.calls)
}

func TestNewRunnerValidatesDependencies(t *testing.T) {
	_, err := NewRunner(nil, logger.New(logger.Options{Output: io.Discard}), nil, Options{})
	assert.Error(t, err)
	_, err = NewRunner(&stubTx{}, nil, nil, Options{})
	assert.Error(t, err)
}
