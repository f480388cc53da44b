package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Notification outcomes recorded by RecordNotification
const (
	OutcomeWritten = "written"
	OutcomeSkipped = "skipped"
	OutcomeDropped = "dropped"
)

var (
	interactionsTotal  metric.Int64Counter
	notificationsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the counters against the global meter provider.
// The global provider delegates, so counters created before Init still export.
func initMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)

		interactionsTotal, metricsErr = meter.Int64Counter(
			"commons_interactions_total",
			metric.WithDescription("Likes, unlikes, comments and replies applied to posts"),
		)
		if metricsErr != nil {
			return
		}

		notificationsTotal, metricsErr = meter.Int64Counter(
			"commons_notifications_total",
			metric.WithDescription("Notification fan-out attempts by type and outcome"),
		)
	})
	return metricsErr
}

// RecordInteraction counts one interaction of the given kind
func RecordInteraction(ctx context.Context, kind string) {
	if err := initMetrics(); err != nil {
		return
	}
	interactionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("type", kind)))
}

// RecordNotification counts one fan-out attempt
func RecordNotification(ctx context.Context, kind, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", kind),
		attribute.String("outcome", outcome),
	))
}
