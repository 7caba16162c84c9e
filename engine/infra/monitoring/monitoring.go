package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/compozy/tally/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Service owns the meter provider used by the operations.
type Service struct {
	meter             metric.Meter
	provider          *sdkmetric.MeterProvider
	registry          *prom.Registry
	recorder          Recorder
	config            *Config
	initialized       bool
	initializationErr error
}

// newDisabledService creates a service instance with no-op implementations
func newDisabledService(cfg *Config, initErr error) *Service {
	return &Service{
		config:            cfg,
		meter:             noop.NewMeterProvider().Meter(DefaultMeterName),
		recorder:          Nop(),
		initialized:       false,
		initializationErr: initErr,
	}
}

// NewMonitoringService builds an SDK meter provider fed to readers. Without
// readers it exports through a Prometheus registry served by ExporterHandler.
func NewMonitoringService(ctx context.Context, cfg *Config, readers ...sdkmetric.Reader) (*Service, error) {
	log := logger.FromContext(ctx)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug("Monitoring disabled, using no-op meter")
		return newDisabledService(cfg, nil), nil
	}
	var registry *prom.Registry
	if len(readers) == 0 {
		registry = prom.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Prometheus exporter: %w", err)
		}
		readers = []sdkmetric.Reader{exporter}
	}
	opts := make([]sdkmetric.Option, 0, len(readers))
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	provider := sdkmetric.NewMeterProvider(opts...)
	meter := provider.Meter(cfg.MeterName)
	rec, err := NewRecorder(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to register operation metrics: %w", err)
	}
	log.Info("Monitoring service initialized", "meter", cfg.MeterName, "prometheus", registry != nil)
	return &Service{
		meter:       meter,
		provider:    provider,
		registry:    registry,
		recorder:    rec,
		config:      cfg,
		initialized: true,
	}, nil
}

// NewMonitoringServiceWithFallback degrades to a no-op service instead of
// failing.
func NewMonitoringServiceWithFallback(ctx context.Context, cfg *Config, readers ...sdkmetric.Reader) *Service {
	service, err := NewMonitoringService(ctx, cfg, readers...)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to initialize monitoring, using no-op implementation", "error", err)
		return newDisabledService(cfg, err)
	}
	return service
}

// Meter returns the OpenTelemetry meter for custom instrumentation
func (s *Service) Meter() metric.Meter {
	return s.meter
}

// Recorder returns the operation recorder bound to this service.
func (s *Service) Recorder() Recorder {
	return s.recorder
}

// Gatherer returns the Prometheus registry backing the default exporter, or
// nil when the caller supplied its own readers or monitoring is disabled.
func (s *Service) Gatherer() prom.Gatherer {
	if s.registry == nil {
		return nil
	}
	return s.registry
}

// ExporterHandler returns an HTTP handler for the /metrics endpoint
func (s *Service) ExporterHandler() http.Handler {
	if s.registry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			if _, err := w.Write([]byte("Prometheus exporter not initialized")); err != nil {
				logger.FromContext(r.Context()).Error("Failed to write metrics response", "error", err)
			}
		})
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider != nil {
		return s.provider.Shutdown(ctx)
	}
	return nil
}

// IsInitialized returns whether the monitoring service was successfully initialized
func (s *Service) IsInitialized() bool {
	return s.initialized
}

// InitializationError returns any error that occurred during initialization
func (s *Service) InitializationError() error {
	return s.initializationErr
}

// SetAsGlobal sets this monitoring service's provider as the global OpenTelemetry meter provider
func (s *Service) SetAsGlobal() {
	if s.provider != nil {
		otel.SetMeterProvider(s.provider)
	}
}
