// Package tax computes GST for an amount in a known category.
package tax

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"dario.cat/mergo"
	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/format"
	"github.com/compozy/tally/engine/infra/monitoring"
	"github.com/compozy/tally/engine/normalize"
	"github.com/compozy/tally/engine/schema"
	"github.com/compozy/tally/pkg/logger"
)

const Operation = "calculate_tax"

// DefaultRates maps each category to its GST percentage.
var DefaultRates = map[string]int{
	"essential":   0,
	"food":        5,
	"standard":    12,
	"electronics": 18,
	"luxury":      28,
}

// Result is the published tax breakdown.
type Result struct {
	BaseAmount  float64 `json:"baseAmount"`
	GSTRate     int     `json:"gstRate"`
	GSTAmount   float64 `json:"gstAmount"`
	TotalAmount float64 `json:"totalAmount"`
}

// Input carries the loose arguments of a calculation.
type Input struct {
	Amount   any `json:"amount"`
	Category any `json:"category"`
}

type Calculator struct {
	rates    map[string]int
	rules    schema.Rules
	recorder monitoring.Recorder
}

type Option func(*Calculator) error

// WithRates merges overrides over the current rate table. Categories are
// matched case-insensitively and rates must lie in [0, 100].
func WithRates(overrides map[string]int) Option {
	return func(c *Calculator) error {
		normalized := make(map[string]int, len(overrides))
		for category, rate := range overrides {
			key := normalize.Key(category)
			if key == "" {
				return fmt.Errorf("tax category cannot be empty")
			}
			if rate < 0 || rate > 100 {
				return fmt.Errorf("tax rate for %q must be between 0 and 100: got %d", key, rate)
			}
			normalized[key] = rate
		}
		if err := mergo.Merge(&c.rates, normalized, mergo.WithOverride); err != nil {
			return fmt.Errorf("failed to merge tax rates: %w", err)
		}
		return nil
	}
}

func WithRecorder(r monitoring.Recorder) Option {
	return func(c *Calculator) error {
		if r != nil {
			c.recorder = r
		}
		return nil
	}
}

func New(opts ...Option) (*Calculator, error) {
	c := &Calculator{
		rates:    maps.Clone(DefaultRates),
		recorder: monitoring.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.rules = schema.Rules{
		{Field: "amount", Check: schema.PositiveNumber},
		{Field: "category", Check: schema.All(schema.NonEmptyString, schema.OneOf(true, c.Categories()...))},
	}
	return c, nil
}

// Categories lists the known categories in sorted order.
func (c *Calculator) Categories() []string {
	return slices.Sorted(maps.Keys(c.rates))
}

// Rate returns the percentage for category.
func (c *Calculator) Rate(category string) (int, bool) {
	rate, ok := c.rates[normalize.Key(category)]
	return rate, ok
}

func (c *Calculator) Execute(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	res, err := c.execute(in)
	c.recorder.RecordOperation(ctx, Operation, time.Since(start), err)
	if err != nil {
		logger.FromContext(ctx).Debug("tax rejected", "operation", Operation, "reason", core.ReasonOf(err), "error", err)
		return nil, err
	}
	return res, nil
}

func (c *Calculator) execute(in Input) (*Result, error) {
	args := map[string]any{"amount": in.Amount, "category": in.Category}
	if err := c.rules.Validate(args); err != nil {
		return nil, err
	}
	amount, _ := core.Number(in.Amount)
	category, _ := core.String(in.Category)
	rate, _ := c.Rate(category)
	levy, total := format.ApplyRate(amount, rate)
	return &Result{
		BaseAmount:  amount,
		GSTRate:     rate,
		GSTAmount:   levy,
		TotalAmount: total,
	}, nil
}

var _ core.Usecase[Input, *Result] = (*Calculator)(nil)

var defaultCalculator = func() *Calculator {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}()

// CalculateTax returns the tax breakdown, or nil when the amount is not a
// positive finite number or the category is unknown.
func CalculateTax(amount, category any) *Result {
	res, err := defaultCalculator.Execute(context.Background(), Input{Amount: amount, Category: category})
	if err != nil {
		return nil
	}
	return res
}
