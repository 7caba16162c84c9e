// Package tally validates loosely-typed input and aggregates it into
// structured results: title casing, GST calculation, report cards and
// transaction-log summaries.
//
// The package-level functions use the built-in policy and return a sentinel
// (empty string or nil) on rejection. An Engine carries a loaded
// configuration and reports rejections as errors.
package tally

import (
	"context"
	"fmt"
	"io"

	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/infra/monitoring"
	"github.com/compozy/tally/engine/reportcard"
	"github.com/compozy/tally/engine/tax"
	"github.com/compozy/tally/engine/title"
	"github.com/compozy/tally/engine/txlog"
	"github.com/compozy/tally/pkg/config"
	"github.com/compozy/tally/pkg/logger"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// FixTitle title-cases a free-form title. It returns "" when input is not a
// non-blank string.
func FixTitle(input any) string {
	return title.FixTitle(input)
}

// CalculateTax computes GST for amount under category, or nil on rejection.
func CalculateTax(amount, category any) *tax.Result {
	return tax.CalculateTax(amount, category)
}

// GenerateReportCard grades a student record, or returns nil on rejection.
func GenerateReportCard(student any) *reportcard.ReportCard {
	return reportcard.GenerateReportCard(student)
}

// AnalyzeTransactions summarizes a transaction log, or returns nil when no
// valid transaction remains.
func AnalyzeTransactions(transactions any) *txlog.Summary {
	return txlog.AnalyzeTransactions(transactions)
}

// ParseJSON decodes raw JSON into the loose value model accepted by every
// operation, keeping object keys in document order.
func ParseJSON(data []byte) (any, error) {
	return core.ParseJSON(data)
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	logger     logger.Logger
	output     io.Writer
	readers    []sdkmetric.Reader
	monitoring *monitoring.Service
}

// WithLogger replaces the logger built from the log configuration.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLogOutput sets where the configured logger writes. Defaults to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithMetricReader attaches a reader to the engine's meter provider. Readers
// are only used when monitoring is enabled; without one the engine exports
// through a Prometheus registry (see monitoring.Service.ExporterHandler).
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(o *options) {
		if r != nil {
			o.readers = append(o.readers, r)
		}
	}
}

// WithMonitoring shares an existing monitoring service instead of building
// one from the monitoring configuration.
func WithMonitoring(s *monitoring.Service) Option {
	return func(o *options) {
		o.monitoring = s
	}
}

// Engine runs the four operations under one configuration.
type Engine struct {
	config       *config.Config
	log          logger.Logger
	monitoring   *monitoring.Service
	title        *title.Caser
	tax          *tax.Calculator
	reportCard   *reportcard.Generator
	transactions *txlog.Analyzer
}

// New builds an Engine from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	return NewContext(context.Background(), cfg, opts...)
}

// NewContext is New with setup messages logged through the logger attached to
// ctx. The engine logger only carries messages about operations.
func NewContext(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		var err error
		log, err = logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.AddSource, o.output)
		if err != nil {
			return nil, fmt.Errorf("failed to setup logger: %w", err)
		}
	}
	mon := o.monitoring
	if mon == nil {
		var err error
		mon, err = monitoring.NewMonitoringService(ctx, &monitoring.Config{
			Enabled:   cfg.Monitoring.Enabled,
			MeterName: cfg.Monitoring.MeterName,
		}, o.readers...)
		if err != nil {
			return nil, fmt.Errorf("failed to setup monitoring: %w", err)
		}
	}
	recorder := mon.Recorder()

	calculator, err := tax.New(tax.WithRates(cfg.Tax.Rates), tax.WithRecorder(recorder))
	if err != nil {
		return nil, fmt.Errorf("failed to build tax calculator: %w", err)
	}
	analyzer, err := txlog.New(
		txlog.WithLargeThreshold(cfg.Transactions.LargeThreshold),
		txlog.WithUncategorized(cfg.Transactions.Uncategorized),
		txlog.WithFilter(cfg.Transactions.Filter),
		txlog.WithRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction analyzer: %w", err)
	}
	return &Engine{
		config:     cfg,
		log:        log,
		monitoring: mon,
		title: title.New(
			title.WithMinorWords(cfg.Title.MinorWords...),
			title.WithRecorder(recorder),
		),
		tax: calculator,
		reportCard: reportcard.New(
			reportcard.WithPassMark(cfg.ReportCard.PassMark),
			reportcard.WithAllowZeroMarks(cfg.ReportCard.AllowZeroMarks),
			reportcard.WithRecorder(recorder),
		),
		transactions: analyzer,
	}, nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config {
	return e.config
}

// FixTitle title-cases input.
func (e *Engine) FixTitle(ctx context.Context, input any) (string, error) {
	out, err := e.title.Execute(e.withLogger(ctx), input)
	if err != nil {
		return "", fmt.Errorf("failed to fix title: %w", err)
	}
	return out, nil
}

// CalculateTax computes GST for amount under category.
func (e *Engine) CalculateTax(ctx context.Context, amount, category any) (*tax.Result, error) {
	res, err := e.tax.Execute(e.withLogger(ctx), tax.Input{Amount: amount, Category: category})
	if err != nil {
		return nil, fmt.Errorf("failed to calculate tax: %w", err)
	}
	return res, nil
}

// GenerateReportCard grades a student given as reportcard.Student or a loose
// record.
func (e *Engine) GenerateReportCard(ctx context.Context, student any) (*reportcard.ReportCard, error) {
	card, err := e.reportCard.Execute(e.withLogger(ctx), student)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report card: %w", err)
	}
	return card, nil
}

// AnalyzeTransactions summarizes a transaction log given as
// []txlog.Transaction or a loose list of records.
func (e *Engine) AnalyzeTransactions(ctx context.Context, transactions any) (*txlog.Summary, error) {
	summary, err := e.transactions.Execute(e.withLogger(ctx), transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze transactions: %w", err)
	}
	return summary, nil
}

// Monitoring returns the monitoring service recording the engine's operations.
func (e *Engine) Monitoring() *monitoring.Service {
	return e.monitoring
}

// Shutdown flushes and releases the engine's meter provider.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.monitoring.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown monitoring: %w", err)
	}
	return nil
}

// withLogger attaches the engine logger unless the caller already provided one.
func (e *Engine) withLogger(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Value(logger.LoggerCtxKey).(logger.Logger); ok {
		return ctx
	}
	return logger.ContextWithLogger(ctx, e.log)
}
