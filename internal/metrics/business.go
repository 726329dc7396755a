package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BusinessMetrics records vault operation counts, durations and batch sizes.
// Domains are "credentials" and "backups".
type BusinessMetrics interface {
	// RecordOperation counts one operation attempt.
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration observes the operation duration in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordCredentials adds the number of credential records a batch operation touched
	// (rotated, deactivated, backed up or restored).
	RecordCredentials(ctx context.Context, domain, operation string, count int)
}

type businessMetrics struct {
	operations  metric.Int64Counter
	duration    metric.Float64Histogram
	credentials metric.Int64Counter
}

// NewBusinessMetrics creates the instruments under namespace, which prefixes every metric
// name (for example "credvault_operations_total").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of vault operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of vault operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	credentials, err := meter.Int64Counter(
		fmt.Sprintf("%s_credentials_processed_total", namespace),
		metric.WithDescription("Credential records touched by batch operations"),
		metric.WithUnit("{credential}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials counter: %w", err)
	}

	return &businessMetrics{
		operations:  operations,
		duration:    duration,
		credentials: credentials,
	}, nil
}

func operationAttributes(domain, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("domain", domain),
		attribute.String("operation", operation),
	}
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	attrs := append(operationAttributes(domain, operation), attribute.String("status", status))
	b.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	attrs := append(operationAttributes(domain, operation), attribute.String("status", status))
	b.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCredentials ignores non-positive counts so empty sweeps do not create series.
func (b *businessMetrics) RecordCredentials(ctx context.Context, domain, operation string, count int) {
	if count <= 0 {
		return
	}
	b.credentials.Add(ctx, int64(count), metric.WithAttributes(operationAttributes(domain, operation)...))
}

// NoOpBusinessMetrics discards everything. It is used when METRICS_ENABLED is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (n *NoOpBusinessMetrics) RecordCredentials(context.Context, string, string, int) {}
