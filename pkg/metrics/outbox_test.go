package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetricsCountsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.Inc("order_placed", OutboxPublished)
	m.Inc("order_placed", OutboxPublished)
	m.Inc("order_placed", OutboxDeadLettered)
	m.Inc("", OutboxRetried)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("order_placed", OutboxPublished)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("order_placed", OutboxDeadLettered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("unknown", OutboxRetried)))

	count, err := testutil.GatherAndCount(reg, "univend_outbox_events_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var nilMetrics *OutboxMetrics
	nilMetrics.Inc("order_placed", OutboxRetried)
}
