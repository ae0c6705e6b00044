// Package tracking records OpenTelemetry metrics for cache operations.
// Only the metric API is used here; exporter wiring belongs to the
// embedding application.
package tracking

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "docforge/cache"

	metricOperationDuration = "cache.operation.duration" // Histogram in seconds
	metricHit               = "cache.hit"
	metricMiss              = "cache.miss"
	metricInvalidatedKeys   = "cache.invalidated_keys"

	attrOperation = "cache.operation"
	attrCategory  = "cache.category"
	attrErrorType = "error.type"
	attrHitStatus = "cache.hit"
)

// Cache operation names used as metric attributes.
const (
	OpGet        = "get"
	OpSet        = "set"
	OpDelete     = "delete"
	OpInvalidate = "invalidate"
	OpSweep      = "sweep"
)

var (
	meterOnce sync.Once

	operationDuration metric.Float64Histogram
	hitCounter        metric.Int64Counter
	missCounter       metric.Int64Counter
	invalidatedKeys   metric.Int64Counter
)

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: failed to initialize cache metric %s: %v\n", name, err)
	}
}

func initMeter() {
	m := otel.Meter(meterName)

	var err error

	operationDuration, err = m.Float64Histogram(
		metricOperationDuration,
		metric.WithDescription("Duration of cache operations"),
		metric.WithUnit("s"),
	)
	logMetricError(metricOperationDuration, err)

	hitCounter, err = m.Int64Counter(
		metricHit,
		metric.WithDescription("Number of cache hits"),
		metric.WithUnit("{hit}"),
	)
	logMetricError(metricHit, err)

	missCounter, err = m.Int64Counter(
		metricMiss,
		metric.WithDescription("Number of cache misses"),
		metric.WithUnit("{miss}"),
	)
	logMetricError(metricMiss, err)

	invalidatedKeys, err = m.Int64Counter(
		metricInvalidatedKeys,
		metric.WithDescription("Number of keys removed by invalidation"),
		metric.WithUnit("{key}"),
	)
	logMetricError(metricInvalidatedKeys, err)
}

// RecordOperation records duration and, for lookups, hit/miss counters for
// one cache operation.
func RecordOperation(ctx context.Context, operation, category string, duration time.Duration, hit bool, err error) {
	meterOnce.Do(initMeter)

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
	}
	if category != "" {
		attrs = append(attrs, attribute.String(attrCategory, category))
	}
	if err != nil {
		attrs = append(attrs, attribute.String(attrErrorType, "error"))
	}
	if operation == OpGet {
		attrs = append(attrs, attribute.Bool(attrHitStatus, hit))
	}

	if operationDuration != nil {
		operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if operation != OpGet {
		return
	}
	if hit {
		if hitCounter != nil {
			hitCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	} else if missCounter != nil {
		missCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordInvalidation records the number of keys removed by one
// invalidation call.
func RecordInvalidation(ctx context.Context, eventType string, removed int) {
	meterOnce.Do(initMeter)

	if invalidatedKeys == nil {
		return
	}
	invalidatedKeys.Add(ctx, int64(removed), metric.WithAttributes(
		attribute.String(attrOperation, OpInvalidate),
		attribute.String("cache.invalidation_type", eventType),
	))
}
