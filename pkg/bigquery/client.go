// Package bigquery wraps the BigQuery client used by the analytics consumer.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/univend-backend/pkg/config"
	"github.com/angelmondragon/univend-backend/pkg/gcp"
	"github.com/angelmondragon/univend-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Client streams rows into the tables declared in config. Only those tables
// are writable; anything else is rejected before a request is made.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  map[string]*bigquery.Table
}

// NewClient dials BigQuery and refuses to start when the dataset or a
// configured table is missing.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcpCfg.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	names := configuredTables(cfg)
	if len(names) == 0 {
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	dataset := bq.Dataset(datasetID)
	c := &Client{bq: bq, dataset: dataset, tables: make(map[string]*bigquery.Table, len(names))}
	for _, name := range names {
		c.tables[name] = dataset.Table(name)
	}

	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": names})
		logg.Info(ctx, "bigquery client ready")
	}
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	var names []string
	if name := strings.TrimSpace(cfg.MarketplaceEventsTable); name != "" {
		names = append(names, name)
	}
	return names
}

// Ping reads dataset and table metadata; it backs the worker health check.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeMetadataErr("dataset", c.dataset.DatasetID, err)
	}
	for name, table := range c.tables {
		if _, err := table.Metadata(ctx); err != nil {
			return describeMetadataErr("table", name, err)
		}
	}
	return nil
}

func describeMetadataErr(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// InsertRows streams rows into a configured table. Rows may be structs or
// bigquery.ValueSaver values carrying their own insert IDs.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.bq == nil {
		return errClientNotInitialized
	}
	name := strings.TrimSpace(table)
	if name == "" {
		return errTableNameRequired
	}
	target, ok := c.tables[name]
	if !ok {
		return fmt.Errorf("bigquery table %q is not configured", name)
	}
	if len(rows) == 0 {
		return nil
	}
	return target.Inserter().Put(ctx, rows)
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
