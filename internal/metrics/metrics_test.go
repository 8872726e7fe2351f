package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestRecordPlacement(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := New(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordPlacement(ctx, "cart", 15*time.Millisecond, "")
	m.RecordPlacement(ctx, "items", 5*time.Millisecond, "")
	m.RecordPlacement(ctx, "items", 5*time.Millisecond, "insufficient_stock")
	m.RecordTransition(ctx, "pending", "cancelled")
	m.RecordConflict(ctx, "place_order")
	m.RecordImportRow(ctx, "created")
	m.RecordNotificationFailure(ctx, "order_placed")

	sums := collect(t, reader)
	assert.Equal(t, int64(2), sums["orders_placed_total"])
	assert.Equal(t, int64(1), sums["order_placement_failures_total"])
	assert.Equal(t, int64(1), sums["order_transitions_total"])
	assert.Equal(t, int64(1), sums["stock_conflicts_total"])
	assert.Equal(t, int64(1), sums["catalog_import_rows_total"])
	assert.Equal(t, int64(1), sums["notification_failures_total"])
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordPlacement(ctx, "cart", time.Second, "")
		m.RecordTransition(ctx, "pending", "confirmed")
		m.RecordConflict(ctx, "import")
		m.RecordImportRow(ctx, "failed")
		m.RecordNotificationFailure(ctx, "status_changed")
	})
}
