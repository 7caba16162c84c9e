// Package txlog summarizes a list of UPI style transactions. Invalid entries
// are skipped; the batch is rejected only when none survive.
package txlog

import (
	"context"
	"fmt"
	"time"

	"github.com/compozy/tally/engine/aggregate"
	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/format"
	"github.com/compozy/tally/engine/infra/monitoring"
	"github.com/compozy/tally/engine/normalize"
	"github.com/compozy/tally/engine/schema"
	"github.com/compozy/tally/pkg/logger"
)

const (
	Operation             = "analyze_transactions"
	DefaultLargeThreshold = 5000
	DefaultUncategorized  = "uncategorized"
	smallAmount           = 100
)

// Summary is the result of AnalyzeTransactions. Money sums are exact decimal
// sums and are not rounded.
type Summary struct {
	ValidTransactions   []any            `json:"validTransactions"`
	TotalAmount         float64          `json:"totalAmount"`
	TotalCredit         float64          `json:"totalCredit"`
	TotalDebit          float64          `json:"totalDebit"`
	NetBalance          float64          `json:"netBalance"`
	TransactionCount    int              `json:"transactionCount"`
	AvgTransaction      int64            `json:"avgTransaction"`
	HighestTransaction  any              `json:"highestTransaction"`
	CategoryBreakdown   format.Breakdown `json:"categoryBreakdown"`
	FrequentContact     string           `json:"frequentContact"`
	AllAbove100         bool             `json:"allAbove100"`
	HasLargeTransaction bool             `json:"hasLargeTransaction"`
	SkippedCount        int              `json:"skippedCount"`
}

type Analyzer struct {
	largeThreshold float64
	uncategorized  string
	filterSource   string
	filter         schema.Predicate
	recorder       monitoring.Recorder
}

type Option func(*Analyzer) error

// WithLargeThreshold sets the amount at or above which a transaction counts
// as large.
func WithLargeThreshold(threshold float64) Option {
	return func(a *Analyzer) error {
		if !core.Finite(threshold) || threshold <= 0 {
			return fmt.Errorf("large transaction threshold must be a positive number: got %v", threshold)
		}
		a.largeThreshold = threshold
		return nil
	}
}

// WithUncategorized names the bucket for transactions without a category.
func WithUncategorized(name string) Option {
	return func(a *Analyzer) error {
		name = normalize.Trim(name)
		if name == "" {
			return fmt.Errorf("uncategorized bucket name cannot be empty")
		}
		a.uncategorized = name
		return nil
	}
}

// WithFilter restricts valid transactions to those for which the CEL
// expression holds. The expression sees the transaction as `record`. An
// empty expression disables filtering.
func WithFilter(expr string) Option {
	return func(a *Analyzer) error {
		expr = normalize.Trim(expr)
		if expr == "" {
			a.filterSource, a.filter = "", nil
			return nil
		}
		pred, err := schema.Expr(expr)
		if err != nil {
			return fmt.Errorf("invalid transaction filter: %w", err)
		}
		a.filterSource, a.filter = expr, pred
		return nil
	}
}

func WithRecorder(r monitoring.Recorder) Option {
	return func(a *Analyzer) error {
		if r != nil {
			a.recorder = r
		}
		return nil
	}
}

func New(opts ...Option) (*Analyzer, error) {
	a := &Analyzer{
		largeThreshold: DefaultLargeThreshold,
		uncategorized:  DefaultUncategorized,
		recorder:       monitoring.Default(),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Filter returns the configured filter expression.
func (a *Analyzer) Filter() string {
	return a.filterSource
}

// Execute accepts a loose list of records or a []Transaction.
func (a *Analyzer) Execute(ctx context.Context, input any) (*Summary, error) {
	start := time.Now()
	summary, err := a.execute(ctx, input)
	a.recorder.RecordOperation(ctx, Operation, time.Since(start), err)
	if err != nil {
		logger.FromContext(ctx).Debug("transactions rejected", "operation", Operation, "reason", core.ReasonOf(err), "error", err)
		return nil, err
	}
	return summary, nil
}

func (a *Analyzer) execute(ctx context.Context, input any) (*Summary, error) {
	candidates, skipped, err := a.candidates(input)
	if err != nil {
		return nil, err
	}
	valid := make([]Transaction, 0, len(candidates))
	for _, c := range candidates {
		if err := a.admit(ctx, c.tx); err != nil {
			skipped = append(skipped, core.InField(fmt.Sprintf("[%d]", c.index), err))
			continue
		}
		valid = append(valid, a.normalized(c.tx))
	}

	total := len(valid) + len(skipped)
	a.recorder.RecordBatchSize(ctx, Operation, total)
	a.recorder.RecordFiltered(ctx, Operation, len(skipped))
	log := logger.FromContext(ctx)
	for _, err := range skipped {
		log.Debug("transaction skipped", "operation", Operation, "reason", core.ReasonOf(err), "error", err)
	}
	if len(valid) == 0 {
		return nil, core.Invalid("transactions", core.ReasonEmpty, "no valid transactions")
	}
	summary, err := a.summarize(valid)
	if err != nil {
		return nil, err
	}
	summary.SkippedCount = len(skipped)
	return summary, nil
}

type candidate struct {
	index int
	tx    Transaction
}

// candidates decodes every element that passes the loose element rules and
// collects the rejections of the rest.
func (a *Analyzer) candidates(input any) ([]candidate, []error, error) {
	if typed, ok := input.([]Transaction); ok {
		if len(typed) == 0 {
			return nil, nil, core.Invalid("transactions", core.ReasonEmpty, "")
		}
		out := make([]candidate, len(typed))
		for i, tx := range typed {
			out[i] = candidate{index: i, tx: tx}
		}
		return out, nil, nil
	}
	if err := schema.NonEmptyList(input); err != nil {
		return nil, nil, core.InField("transactions", err)
	}
	items, _ := core.List(input)
	accepted, rejected := elementRules.Filter(items)
	out := make([]candidate, len(accepted))
	for j, i := range accepted {
		out[j] = candidate{index: i, tx: decode(items[i])}
	}
	return out, rejected, nil
}

// admit checks a decoded transaction against its struct rules and the
// configured filter.
func (a *Analyzer) admit(ctx context.Context, tx Transaction) error {
	v := schema.NewCompositeValidator(schema.NewStructValidator(tx))
	if a.filter != nil {
		v.AddValidator(schema.NewPredicateValidator(tx.view(), a.filter))
	}
	return v.Validate(ctx)
}

func (a *Analyzer) normalized(tx Transaction) Transaction {
	tx.Counterparty = normalize.Trim(tx.Counterparty)
	tx.Category = normalize.Trim(tx.Category)
	if tx.Category == "" {
		tx.Category = a.uncategorized
	}
	return tx
}

func (a *Analyzer) summarize(txs []Transaction) (*Summary, error) {
	amount := func(t Transaction) float64 { return t.Amount }

	byCategory := aggregate.GroupBy(txs, func(t Transaction) string { return t.Category })
	breakdown := make(format.Breakdown, len(byCategory))
	for i, g := range byCategory {
		breakdown[i] = format.Entry{Key: g.Key, Value: sumAmounts(g.Value)}
	}
	// Derived from the breakdown so the two always agree exactly.
	totalAmount := breakdown.Total()

	var credit, debit float64
	for _, g := range aggregate.GroupBy(txs, func(t Transaction) string { return t.Type }) {
		switch g.Key {
		case TypeCredit:
			credit = sumAmounts(g.Value)
		case TypeDebit:
			debit = sumAmounts(g.Value)
		}
	}

	contact, _ := aggregate.MostFrequent(txs, func(t Transaction) (string, bool) {
		return t.Counterparty, t.Counterparty != ""
	})

	highest, _ := aggregate.MaxBy(txs, amount)
	record, err := highest.published()
	if err != nil {
		return nil, fmt.Errorf("failed to copy highest transaction: %w", err)
	}
	records := make([]any, len(txs))
	for i, tx := range txs {
		if records[i], err = tx.published(); err != nil {
			return nil, fmt.Errorf("failed to copy transaction %d: %w", i, err)
		}
	}

	return &Summary{
		ValidTransactions:   records,
		TotalAmount:         totalAmount,
		TotalCredit:         credit,
		TotalDebit:          debit,
		NetBalance:          format.Sum(credit, -debit),
		TransactionCount:    len(txs),
		AvgTransaction:      format.Mean(totalAmount, len(txs)),
		HighestTransaction:  record,
		CategoryBreakdown:   breakdown,
		FrequentContact:     contact,
		AllAbove100:         aggregate.All(txs, func(t Transaction) bool { return t.Amount > smallAmount }),
		HasLargeTransaction: aggregate.Any(txs, func(t Transaction) bool { return t.Amount >= a.largeThreshold }),
	}, nil
}

func sumAmounts(txs []Transaction) float64 {
	amounts := make([]float64, len(txs))
	for i, t := range txs {
		amounts[i] = t.Amount
	}
	return format.Sum(amounts...)
}

var _ core.Usecase[any, *Summary] = (*Analyzer)(nil)

var defaultAnalyzer = func() *Analyzer {
	a, err := New()
	if err != nil {
		panic(err)
	}
	return a
}()

// AnalyzeTransactions summarizes the valid transactions in the list, or
// returns nil when the input is not a non-empty list or nothing is valid.
func AnalyzeTransactions(transactions any) *Summary {
	summary, err := defaultAnalyzer.Execute(context.Background(), transactions)
	if err != nil {
		return nil
	}
	return summary
}
