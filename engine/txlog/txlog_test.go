package txlog

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/format"
	"github.com/compozy/tally/engine/infra/monitoring"
	"github.com/compozy/tally/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func sampleLedger() []any {
	return []any{
		map[string]any{"type": "credit", "amount": 5000, "to": "Employer", "category": "income"},
		map[string]any{"type": "debit", "amount": 200, "to": "Swiggy", "category": "food"},
		map[string]any{"type": "debit", "amount": 100, "to": "Swiggy", "category": "food"},
	}
}

func TestAnalyzeTransactions(t *testing.T) {
	t.Run("Should summarize a ledger", func(t *testing.T) {
		summary := AnalyzeTransactions(sampleLedger())
		require.NotNil(t, summary)
		assert.Equal(t, 5300.0, summary.TotalAmount)
		assert.Equal(t, 5000.0, summary.TotalCredit)
		assert.Equal(t, 300.0, summary.TotalDebit)
		assert.Equal(t, 4700.0, summary.NetBalance)
		assert.Equal(t, 3, summary.TransactionCount)
		assert.Equal(t, int64(1767), summary.AvgTransaction)
		assert.Equal(t, format.Breakdown{{Key: "income", Value: 5000}, {Key: "food", Value: 300}}, summary.CategoryBreakdown)
		assert.Equal(t, "Swiggy", summary.FrequentContact)
		assert.False(t, summary.AllAbove100)
		assert.True(t, summary.HasLargeTransaction)
		assert.Equal(t, 0, summary.SkippedCount)

		highest, ok := summary.HighestTransaction.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Employer", highest["to"])
	})

	t.Run("Should reject empty and fully invalid input", func(t *testing.T) {
		assert.Nil(t, AnalyzeTransactions([]any{}))
		assert.Nil(t, AnalyzeTransactions(nil))
		assert.Nil(t, AnalyzeTransactions("not a list"))
		assert.Nil(t, AnalyzeTransactions(map[string]any{"type": "debit", "amount": 5}))
		assert.Nil(t, AnalyzeTransactions([]any{map[string]any{"type": "debit", "amount": -5}}))
		assert.Nil(t, AnalyzeTransactions([]any{
			map[string]any{"type": "refund", "amount": 10},
			map[string]any{"type": "credit", "amount": "10"},
			map[string]any{"type": "credit", "amount": math.Inf(1)},
			map[string]any{"type": "CREDIT", "amount": 10},
			42,
		}))
	})

	t.Run("Should skip invalid elements and keep the rest", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"type": "debit", "amount": 0},
			map[string]any{"type": "credit", "amount": 150},
			nil,
		})
		require.NotNil(t, summary)
		assert.Equal(t, 1, summary.TransactionCount)
		assert.Equal(t, 2, summary.SkippedCount)
		assert.True(t, summary.AllAbove100)
		assert.False(t, summary.HasLargeTransaction)
	})

	t.Run("Should resolve frequency ties to the first contact", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"type": "debit", "amount": 10, "counterparty": "A"},
			map[string]any{"type": "debit", "amount": 10, "counterparty": "B"},
			map[string]any{"type": "debit", "amount": 10, "counterparty": "B"},
			map[string]any{"type": "debit", "amount": 10, "counterparty": "A"},
		})
		require.NotNil(t, summary)
		assert.Equal(t, "A", summary.FrequentContact)
	})

	t.Run("Should resolve amount ties to the first record", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"id": "t1", "type": "debit", "amount": 10},
			map[string]any{"id": "t2", "type": "credit", "amount": 900},
			map[string]any{"id": "t3", "type": "debit", "amount": 900},
		})
		require.NotNil(t, summary)
		highest := summary.HighestTransaction.(map[string]any)
		assert.Equal(t, "t2", highest["id"])
	})

	t.Run("Should exclude blank contacts from the tally only", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"type": "debit", "amount": 10, "counterparty": ""},
			map[string]any{"type": "debit", "amount": 20, "counterparty": "  "},
			map[string]any{"type": "debit", "amount": 30},
		})
		require.NotNil(t, summary)
		assert.Equal(t, "", summary.FrequentContact)
		assert.Equal(t, 3, summary.TransactionCount)
		assert.Equal(t, format.Breakdown{{Key: "uncategorized", Value: 60}}, summary.CategoryBreakdown)
	})

	t.Run("Should prefer counterparty over the legacy key", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"type": "debit", "amount": 10, "counterparty": "Zomato", "to": "Swiggy"},
		})
		require.NotNil(t, summary)
		assert.Equal(t, "Zomato", summary.FrequentContact)
	})

	t.Run("Should make the breakdown sum to the total", func(t *testing.T) {
		var ledger []any
		for i := range 50 {
			ledger = append(ledger, map[string]any{
				"type":     []string{"credit", "debit"}[i%2],
				"amount":   1.1 + float64(i)*0.37,
				"category": []string{"rent", "food", "", "travel"}[i%4],
			})
		}
		summary := AnalyzeTransactions(ledger)
		require.NotNil(t, summary)
		assert.Equal(t, summary.TotalAmount, summary.CategoryBreakdown.Total())
		assert.Equal(t, []string{"rent", "food", "uncategorized", "travel"}, summary.CategoryBreakdown.Keys())
		assert.Equal(t, format.Sum(summary.TotalCredit, -summary.TotalDebit), summary.NetBalance)
	})

	t.Run("Should keep sub-cent amounts exact across categories", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"type": "debit", "amount": 1.005, "category": "a"},
			map[string]any{"type": "debit", "amount": 1.005, "category": "b"},
			map[string]any{"type": "debit", "amount": 1.005, "category": "c"},
		})
		require.NotNil(t, summary)
		assert.Equal(t, format.Breakdown{{Key: "a", Value: 1.005}, {Key: "b", Value: 1.005}, {Key: "c", Value: 1.005}}, summary.CategoryBreakdown)
		assert.Equal(t, 3.015, summary.TotalAmount)
		assert.Equal(t, summary.TotalAmount, summary.CategoryBreakdown.Total())
		assert.Equal(t, 3.015, summary.TotalDebit)
		assert.Equal(t, -3.015, summary.NetBalance)
		assert.Equal(t, int64(1), summary.AvgTransaction)
	})

	t.Run("Should list deep copies of the valid transactions in input order", func(t *testing.T) {
		input, err := core.ParseJSON([]byte(`[
			{"type":"debit","amount":40,"meta":{"tags":["tea"]}},
			{"type":"refund","amount":10},
			{"type":"credit","amount":60,"category":"cashback"}
		]`))
		require.NoError(t, err)

		summary := AnalyzeTransactions(input)
		require.NotNil(t, summary)
		require.Len(t, summary.ValidTransactions, 2)
		assert.Equal(t, 1, summary.SkippedCount)

		original, _ := core.List(input)
		first, ok := summary.ValidTransactions[0].(*core.Object)
		require.True(t, ok)
		assert.NotSame(t, original[0], first)

		data, err := json.Marshal(summary.ValidTransactions)
		require.NoError(t, err)
		assert.JSONEq(t, `[
			{"type":"debit","amount":40,"meta":{"tags":["tea"]}},
			{"type":"credit","amount":60,"category":"cashback"}
		]`, string(data))
	})

	t.Run("Should keep document order and copy the highest record", func(t *testing.T) {
		input, err := core.ParseJSON([]byte(`[
			{"type":"debit","amount":120.5,"category":"food","counterparty":"Swiggy","meta":{"tags":["lunch"]}},
			{"type":"credit","amount":99.5,"category":"cashback"}
		]`))
		require.NoError(t, err)

		summary := AnalyzeTransactions(input)
		require.NotNil(t, summary)

		data, err := json.Marshal(summary)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"categoryBreakdown":{"food":120.5,"cashback":99.5}`)
		assert.Contains(t, string(data), `"highestTransaction":{"type":"debit","amount":120.5`)
		assert.Equal(t, int64(110), summary.AvgTransaction)

		original, _ := core.List(input)
		highest, ok := summary.HighestTransaction.(*core.Object)
		require.True(t, ok)
		assert.NotSame(t, original[0], highest)
	})
}

func TestAnalyzer(t *testing.T) {
	t.Run("Should honor a custom large threshold", func(t *testing.T) {
		a, err := New(WithLargeThreshold(500))
		require.NoError(t, err)
		summary, err := a.Execute(t.Context(), []any{map[string]any{"type": "debit", "amount": 500}})
		require.NoError(t, err)
		assert.True(t, summary.HasLargeTransaction)

		summary, err = a.Execute(t.Context(), []any{map[string]any{"type": "debit", "amount": 499.99}})
		require.NoError(t, err)
		assert.False(t, summary.HasLargeTransaction)
	})

	t.Run("Should apply the filter expression", func(t *testing.T) {
		a, err := New(WithFilter(`record.type == "debit" && record.amount < 1000`), WithUncategorized("misc"))
		require.NoError(t, err)
		assert.Equal(t, `record.type == "debit" && record.amount < 1000`, a.Filter())

		summary, err := a.Execute(t.Context(), sampleLedger())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.TransactionCount)
		assert.Equal(t, 1, summary.SkippedCount)
		assert.Equal(t, 0.0, summary.TotalCredit)
	})

	t.Run("Should reject a batch the filter empties", func(t *testing.T) {
		a, err := New(WithFilter(`record.amount > 1000000`))
		require.NoError(t, err)
		_, err = a.Execute(t.Context(), sampleLedger())
		require.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Equal(t, core.ReasonEmpty, core.ReasonOf(err))
	})

	t.Run("Should reject invalid options", func(t *testing.T) {
		_, err := New(WithFilter("record.amount >"))
		assert.ErrorContains(t, err, "invalid transaction filter")
		_, err = New(WithLargeThreshold(0))
		assert.Error(t, err)
		_, err = New(WithUncategorized(" "))
		assert.Error(t, err)
	})

	t.Run("Should analyze typed transactions", func(t *testing.T) {
		a, err := New(WithFilter(`record.category != "blocked"`))
		require.NoError(t, err)
		summary, err := a.Execute(t.Context(), []Transaction{
			{ID: "a", Type: TypeCredit, Amount: 300, Counterparty: "Ravi"},
			{ID: "b", Type: "refund", Amount: 50},
			{ID: "c", Type: TypeDebit, Amount: 80, Category: "blocked"},
			{ID: "d", Type: TypeDebit, Amount: math.NaN()},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, summary.TransactionCount)
		assert.Equal(t, 3, summary.SkippedCount)
		highest, ok := summary.HighestTransaction.(Transaction)
		require.True(t, ok)
		assert.Equal(t, "a", highest.ID)
		assert.Equal(t, "Ravi", summary.FrequentContact)

		_, err = a.Execute(t.Context(), []Transaction{})
		assert.Equal(t, core.ReasonEmpty, core.ReasonOf(err))
	})

	t.Run("Should record batch metrics and log skipped records", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		rec, err := monitoring.NewRecorder(provider.Meter("test"))
		require.NoError(t, err)
		var buf bytes.Buffer
		ctx := logger.ContextWithLogger(t.Context(), logger.NewLogger(&logger.Config{
			Level: logger.DebugLevel, Output: &buf, TimeFormat: "15:04:05",
		}))

		a, err := New(WithRecorder(rec))
		require.NoError(t, err)
		_, err = a.Execute(ctx, []any{
			map[string]any{"type": "debit", "amount": 10},
			map[string]any{"type": "debit", "amount": -1},
		})
		require.NoError(t, err)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(t.Context(), &rm))
		var filtered int64
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				if m.Name != "tally_filtered_records_total" {
					continue
				}
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					filtered += dp.Value
				}
			}
		}
		assert.Equal(t, int64(1), filtered)
		assert.Contains(t, buf.String(), "transaction skipped")
		assert.Contains(t, buf.String(), "[1].amount")
	})

	t.Run("Should report filter rejections at their input position", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := logger.ContextWithLogger(t.Context(), logger.NewLogger(&logger.Config{
			Level: logger.DebugLevel, Output: &buf, TimeFormat: "15:04:05",
		}))
		a, err := New(WithFilter(`record.amount < 100`))
		require.NoError(t, err)

		summary, err := a.Execute(ctx, []any{
			map[string]any{"type": "debit", "amount": -1},
			map[string]any{"type": "debit", "amount": 500},
			map[string]any{"type": "debit", "amount": 10},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.SkippedCount)
		assert.Equal(t, 10.0, summary.TotalAmount)
		assert.Contains(t, buf.String(), "[0].amount")
		assert.Contains(t, buf.String(), "[1]:")
		assert.NotContains(t, buf.String(), "[2]")
	})
}
