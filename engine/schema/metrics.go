package schema

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/compozy/tally/engine/infra/monitoring/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	kindSchema = "json_schema"
	kindExpr   = "expression"
)

// instruments meter schema documents and CEL expressions. They hang off the
// global meter provider, a no-op until the application installs one.
type instruments struct {
	compiles    metric.Int64Counter
	validations metric.Int64Counter
	latency     metric.Float64Histogram
	cached      metric.Int64ObservableGauge
}

var schemaInstruments = sync.OnceValues(func() (*instruments, error) {
	return newInstruments(otel.GetMeterProvider().Meter("tally.schema"))
})

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		ins  instruments
		err  error
		errs []error
	)
	ins.compiles, err = meter.Int64Counter(
		metrics.Name("schema", "compiles_total"),
		metric.WithDescription("Schema and expression compilations by cache outcome"),
		metric.WithUnit("1"),
	)
	errs = append(errs, err)
	ins.validations, err = meter.Int64Counter(
		metrics.Name("schema", "validations_total"),
		metric.WithDescription("Values checked against a schema or expression"),
		metric.WithUnit("1"),
	)
	errs = append(errs, err)
	ins.latency, err = meter.Float64Histogram(
		metrics.Name("schema", "validate_duration_seconds"),
		metric.WithDescription("Time spent checking a value"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.DurationBuckets...),
	)
	errs = append(errs, err)
	ins.cached, err = meter.Int64ObservableGauge(
		metrics.Name("schema", "cache_size"),
		metric.WithDescription("Compiled entries held in cache"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(compiledSchemaCache.Len()), metric.WithAttributes(attribute.String("kind", kindSchema)))
			o.Observe(int64(programCache.Len()), metric.WithAttributes(attribute.String("kind", kindExpr)))
			return nil
		}),
	)
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &ins, nil
}

func recordCompile(ctx context.Context, kind string, cacheHit bool) {
	ins, err := schemaInstruments()
	if err != nil {
		return
	}
	ins.compiles.Add(detach(ctx), 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("cache_hit", cacheHit),
	))
}

func recordValidation(ctx context.Context, kind string, elapsed time.Duration, valid bool) {
	ins, err := schemaInstruments()
	if err != nil {
		return
	}
	ctx = detach(ctx)
	kindAttr := attribute.String("kind", kind)
	ins.validations.Add(ctx, 1, metric.WithAttributes(kindAttr, attribute.Bool("valid", valid)))
	ins.latency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(kindAttr))
}

func detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
