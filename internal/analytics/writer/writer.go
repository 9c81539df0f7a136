// Package writer lands marketplace analytics rows in BigQuery.
package writer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/sethvargo/go-retry"

	"github.com/angelmondragon/univend-backend/internal/analytics/types"
)

// Config controls where rows go and how hard the writer tries.
type Config struct {
	MarketplaceTable string
	// Attempts is the total number of streaming inserts per row, first try included.
	Attempts     int
	FirstBackoff time.Duration
	MaxBackoff   time.Duration
}

type rowSink interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// BigQueryWriter streams one row per consumed event. Rows are keyed by event
// ID so a redelivered message collapses into the row BigQuery already holds.
type BigQueryWriter struct {
	sink         rowSink
	table        string
	attempts     uint64
	firstBackoff time.Duration
	maxBackoff   time.Duration
}

// New builds a writer over the shared BigQuery client.
func New(sink rowSink, cfg Config) (*BigQueryWriter, error) {
	if sink == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.MarketplaceTable)
	if table == "" {
		return nil, errors.New("marketplace table is required")
	}

	w := &BigQueryWriter{
		sink:         sink,
		table:        table,
		attempts:     3,
		firstBackoff: 250 * time.Millisecond,
		maxBackoff:   2 * time.Second,
	}
	if cfg.Attempts > 0 {
		w.attempts = uint64(cfg.Attempts)
	}
	if cfg.FirstBackoff > 0 {
		w.firstBackoff = cfg.FirstBackoff
	}
	if cfg.MaxBackoff > 0 {
		w.maxBackoff = cfg.MaxBackoff
	}
	if w.maxBackoff < w.firstBackoff {
		w.maxBackoff = w.firstBackoff
	}
	return w, nil
}

// InsertMarketplace writes row immediately. The consumer only acks its
// message after this returns, so nothing is buffered in memory.
func (w *BigQueryWriter) InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error {
	saver := &cbigquery.StructSaver{Struct: &row, InsertID: row.EventID}
	rows := []any{saver}

	backoff := retry.WithMaxRetries(w.attempts-1,
		retry.WithCappedDuration(w.maxBackoff, retry.NewExponential(w.firstBackoff)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := w.sink.InsertRows(ctx, w.table, rows)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %s event %s into %s: %w", row.EventType, row.EventID, w.table, err)
	}
	return nil
}
