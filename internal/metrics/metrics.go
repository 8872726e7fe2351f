// Package metrics records order placement, lifecycle and import activity
// through OpenTelemetry instruments.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "storefront"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	ordersPlaced      metric.Int64Counter
	placementFailures metric.Int64Counter
	placementDuration metric.Float64Histogram
	transitions       metric.Int64Counter
	stockConflicts    metric.Int64Counter
	importRows        metric.Int64Counter
	notifyFailures    metric.Int64Counter
}

// New registers the instruments on mp, or on the global provider when mp is nil.
func New(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	ordersPlaced, err := meter.Int64Counter(
		"orders_placed_total",
		metric.WithDescription("Total number of orders placed"),
	)
	if err != nil {
		return nil, err
	}

	placementFailures, err := meter.Int64Counter(
		"order_placement_failures_total",
		metric.WithDescription("Total number of rejected order placements by reason"),
	)
	if err != nil {
		return nil, err
	}

	placementDuration, err := meter.Float64Histogram(
		"order_placement_duration_seconds",
		metric.WithDescription("Order placement duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"order_transitions_total",
		metric.WithDescription("Total number of applied order status transitions"),
	)
	if err != nil {
		return nil, err
	}

	stockConflicts, err := meter.Int64Counter(
		"stock_conflicts_total",
		metric.WithDescription("Total number of lost stock or version races"),
	)
	if err != nil {
		return nil, err
	}

	importRows, err := meter.Int64Counter(
		"catalog_import_rows_total",
		metric.WithDescription("Total number of imported catalog rows by outcome"),
	)
	if err != nil {
		return nil, err
	}

	notifyFailures, err := meter.Int64Counter(
		"notification_failures_total",
		metric.WithDescription("Total number of notifications that could not be delivered"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPlaced:      ordersPlaced,
		placementFailures: placementFailures,
		placementDuration: placementDuration,
		transitions:       transitions,
		stockConflicts:    stockConflicts,
		importRows:        importRows,
		notifyFailures:    notifyFailures,
	}, nil
}

// RecordPlacement records one PlaceOrder call. reason is empty on success.
func (m *Metrics) RecordPlacement(ctx context.Context, source string, duration time.Duration, reason string) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.Bool("success", reason == ""),
	}
	m.placementDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if reason == "" {
		m.ordersPlaced.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
		return
	}
	m.placementFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordConflict counts a race lost by the given operation.
func (m *Metrics) RecordConflict(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.stockConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *Metrics) RecordImportRow(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.importRows.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordNotificationFailure(ctx context.Context, event string) {
	if m == nil {
		return
	}
	m.notifyFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
