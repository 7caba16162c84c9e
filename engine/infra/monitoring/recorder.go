package monitoring

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/compozy/tally/engine/core"
	monitoringmetrics "github.com/compozy/tally/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeError    = "error"
)

// Recorder captures operation metrics.
type Recorder interface {
	RecordOperation(ctx context.Context, operation string, duration time.Duration, err error)
	RecordFiltered(ctx context.Context, operation string, count int)
	RecordBatchSize(ctx context.Context, operation string, size int)
}

type recorder struct {
	operations metric.Int64Counter
	rejections metric.Int64Counter
	filtered   metric.Int64Counter
	duration   metric.Float64Histogram
	batchSize  metric.Float64Histogram
}

// NewRecorder registers the operation instruments on meter.
func NewRecorder(meter metric.Meter) (Recorder, error) {
	if meter == nil {
		return Nop(), nil
	}
	operations, err := meter.Int64Counter(
		monitoringmetrics.Name("operations_total"),
		metric.WithDescription("Operations executed by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	rejections, err := meter.Int64Counter(
		monitoringmetrics.Name("rejections_total"),
		metric.WithDescription("Rejected inputs by reason"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	filtered, err := meter.Int64Counter(
		monitoringmetrics.Name("filtered_records_total"),
		metric.WithDescription("Collection elements excluded from aggregation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		monitoringmetrics.Name("operation_duration_seconds"),
		metric.WithDescription("Operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.DurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	batchSize, err := meter.Float64Histogram(
		monitoringmetrics.Name("batch_size"),
		metric.WithDescription("Elements per analyzed collection"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.BatchSizeBuckets...),
	)
	if err != nil {
		return nil, err
	}
	return &recorder{
		operations: operations,
		rejections: rejections,
		filtered:   filtered,
		duration:   duration,
		batchSize:  batchSize,
	}, nil
}

func (r *recorder) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	ctx = metricsContext(ctx)
	outcome := outcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidInput):
		outcome = outcomeRejected
		reason := string(core.ReasonOf(err))
		if reason == "" {
			reason = "unspecified"
		}
		r.rejections.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("reason", reason),
		))
	default:
		outcome = outcomeError
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	r.operations.Add(ctx, 1, attrs)
	r.duration.Record(ctx, duration.Seconds(), attrs)
}

func (r *recorder) RecordFiltered(ctx context.Context, operation string, count int) {
	if count <= 0 {
		return
	}
	r.filtered.Add(metricsContext(ctx), int64(count), metric.WithAttributes(attribute.String("operation", operation)))
}

func (r *recorder) RecordBatchSize(ctx context.Context, operation string, size int) {
	r.batchSize.Record(
		metricsContext(ctx),
		float64(size),
		metric.WithAttributes(attribute.String("operation", operation)),
	)
}

type nopRecorder struct{}

// Nop returns a Recorder that drops everything.
func Nop() Recorder {
	return nopRecorder{}
}

func (nopRecorder) RecordOperation(context.Context, string, time.Duration, error) {}
func (nopRecorder) RecordFiltered(context.Context, string, int)                   {}
func (nopRecorder) RecordBatchSize(context.Context, string, int)                  {}

var (
	defaultRecorderOnce sync.Once
	defaultRecorder     Recorder
)

// Default returns a Recorder bound to the global meter provider, which is a
// no-op until the application installs one.
func Default() Recorder {
	defaultRecorderOnce.Do(func() {
		rec, err := NewRecorder(otel.GetMeterProvider().Meter("tally"))
		if err != nil {
			rec = Nop()
		}
		defaultRecorder = rec
	})
	return defaultRecorder
}

func metricsContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
