package tally

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/compozy/tally/engine/core"
	"github.com/compozy/tally/engine/title"
	"github.com/compozy/tally/pkg/config"
	"github.com/compozy/tally/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestOperations(t *testing.T) {
	t.Run("Should title-case with the built-in minor words", func(t *testing.T) {
		assert.Equal(t, "Dil ka Kya Kare", FixTitle("  DIL   KA kya KARE "))
		assert.Empty(t, FixTitle(42))
	})

	t.Run("Should calculate tax or return nil", func(t *testing.T) {
		res := CalculateTax(1000, "electronics")
		require.NotNil(t, res)
		assert.Equal(t, 1180.0, res.TotalAmount)
		assert.Nil(t, CalculateTax(-5, "food"))
		assert.Nil(t, CalculateTax(100, "jewellery"))
	})

	t.Run("Should grade parsed JSON in document order", func(t *testing.T) {
		student, err := ParseJSON([]byte(`{"name":"Rahul","marks":{"math":85,"science":92,"english":78}}`))
		require.NoError(t, err)
		card := GenerateReportCard(student)
		require.NotNil(t, card)
		assert.Equal(t, 255.0, card.TotalMarks)
		assert.Equal(t, "A", card.Grade)
		assert.Equal(t, "science", card.HighestSubject)
		assert.Nil(t, GenerateReportCard(map[string]any{"name": "Rahul"}))
	})

	t.Run("Should summarize transactions or return nil", func(t *testing.T) {
		summary := AnalyzeTransactions([]any{
			map[string]any{"id": 1, "type": "credit", "amount": 5000, "category": "income"},
			map[string]any{"id": 2, "type": "debit", "amount": 300, "to": "Swiggy", "category": "food"},
		})
		require.NotNil(t, summary)
		assert.Equal(t, 4700.0, summary.NetBalance)
		assert.Equal(t, "Swiggy", summary.FrequentContact)
		assert.Nil(t, AnalyzeTransactions([]any{}))
	})

	t.Run("Should reject malformed JSON", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"name":`))
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	t.Run("Should apply the configured policy", func(t *testing.T) {
		cfg := config.Default()
		cfg.Title.MinorWords = []string{"of"}
		cfg.Tax.Rates = map[string]int{"food": 7, "books": 5}
		cfg.ReportCard.PassMark = 80
		cfg.Transactions.LargeThreshold = 250
		cfg.Transactions.Uncategorized = "misc"

		engine, err := New(cfg)
		require.NoError(t, err)
		assert.Same(t, cfg, engine.Config())

		fixed, err := engine.FixTitle(t.Context(), "the lord of the rings")
		require.NoError(t, err)
		assert.Equal(t, "The Lord of The Rings", fixed)

		res, err := engine.CalculateTax(t.Context(), 100, "books")
		require.NoError(t, err)
		assert.Equal(t, 5, res.GSTRate)

		card, err := engine.GenerateReportCard(t.Context(), map[string]any{
			"name":  "Asha",
			"marks": map[string]any{"math": 85, "art": 70},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"math"}, card.PassedSubjects)
		assert.Equal(t, []string{"art"}, card.FailedSubjects)

		summary, err := engine.AnalyzeTransactions(t.Context(), []any{
			map[string]any{"type": "debit", "amount": 300},
		})
		require.NoError(t, err)
		assert.True(t, summary.HasLargeTransaction)
		assert.Equal(t, []string{"misc"}, summary.CategoryBreakdown.Keys())
	})

	t.Run("Should return wrapped invalid input errors", func(t *testing.T) {
		engine, err := New(nil)
		require.NoError(t, err)

		_, err = engine.CalculateTax(t.Context(), "100", "food")
		require.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Contains(t, err.Error(), "failed to calculate tax")
		assert.Equal(t, core.ReasonWrongType, core.ReasonOf(err))

		_, err = engine.FixTitle(t.Context(), "   ")
		var invalid *core.InvalidInputError
		require.True(t, errors.As(err, &invalid))
		assert.Equal(t, "title", invalid.Field)
	})

	t.Run("Should reject an invalid configuration", func(t *testing.T) {
		cfg := config.Default()
		cfg.Transactions.Filter = "record.amount >"
		_, err := New(cfg)
		assert.ErrorContains(t, err, "failed to build transaction analyzer")

		cfg = config.Default()
		cfg.Log.Level = "verbose"
		_, err = New(cfg)
		assert.ErrorContains(t, err, "failed to setup logger")
	})

	t.Run("Should log rejections through the configured logger", func(t *testing.T) {
		cfg := config.Default()
		cfg.Log.Level = "debug"
		var buf bytes.Buffer
		engine, err := New(cfg, WithLogOutput(&buf))
		require.NoError(t, err)

		_, err = engine.CalculateTax(t.Context(), 100, "jewellery")
		require.Error(t, err)
		assert.Contains(t, buf.String(), "unknown_value")
	})

	t.Run("Should prefer a logger already attached to the context", func(t *testing.T) {
		cfg := config.Default()
		cfg.Log.Level = "debug"
		var engineBuf, ctxBuf bytes.Buffer
		engine, err := New(cfg, WithLogOutput(&engineBuf))
		require.NoError(t, err)
		ctx := logger.ContextWithLogger(t.Context(), logger.NewLogger(&logger.Config{
			Level:      logger.DebugLevel,
			Output:     &ctxBuf,
			TimeFormat: "15:04:05",
		}))

		_, err = engine.FixTitle(ctx, nil)
		require.Error(t, err)
		assert.Empty(t, engineBuf.String())
		assert.Contains(t, ctxBuf.String(), "fix_title")
	})

	t.Run("Should record operations when monitoring is enabled", func(t *testing.T) {
		cfg := config.Default()
		cfg.Monitoring.Enabled = true
		reader := sdkmetric.NewManualReader()
		engine, err := New(cfg, WithMetricReader(reader))
		require.NoError(t, err)
		t.Cleanup(func() { _ = engine.Shutdown(t.Context()) })
		assert.True(t, engine.Monitoring().IsInitialized())

		_, err = engine.FixTitle(t.Context(), "sholay")
		require.NoError(t, err)
		_, err = engine.FixTitle(t.Context(), 7)
		require.Error(t, err)

		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(t.Context(), &rm))
		var total int64
		for _, scope := range rm.ScopeMetrics {
			for _, m := range scope.Metrics {
				if m.Name != "tally_operations_total" {
					continue
				}
				for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
					total += dp.Value
				}
			}
		}
		assert.Equal(t, int64(2), total)
	})

	t.Run("Should export through Prometheus when monitoring has no reader", func(t *testing.T) {
		cfg := config.Default()
		cfg.Monitoring.Enabled = true
		engine, err := New(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = engine.Shutdown(t.Context()) })
		require.True(t, engine.Monitoring().IsInitialized())

		_, err = engine.CalculateTax(t.Context(), 100, "food")
		require.NoError(t, err)

		families, err := engine.Monitoring().Gatherer().Gather()
		require.NoError(t, err)
		var names []string
		for _, f := range families {
			names = append(names, f.GetName())
		}
		assert.Contains(t, names, "tally_operations_total")
	})

	t.Run("Should fail on an invalid monitoring configuration", func(t *testing.T) {
		cfg := config.Default()
		cfg.Monitoring.Enabled = true
		cfg.Monitoring.MeterName = " "
		_, err := New(cfg)
		assert.ErrorContains(t, err, "failed to setup monitoring")
	})

	t.Run("Should log setup messages through the context logger", func(t *testing.T) {
		cfg := config.Default()
		cfg.Log.Level = "debug"
		var engineBuf, ctxBuf bytes.Buffer
		ctx := logger.ContextWithLogger(t.Context(), logger.NewLogger(&logger.Config{
			Level:      logger.DebugLevel,
			Output:     &ctxBuf,
			TimeFormat: "15:04:05",
		}))
		_, err := NewContext(ctx, cfg, WithLogOutput(&engineBuf))
		require.NoError(t, err)
		assert.Empty(t, engineBuf.String())
		assert.Contains(t, ctxBuf.String(), "Monitoring disabled")
	})
}

func TestDefaultMinorWords(t *testing.T) {
	t.Run("Should configure the title caser defaults", func(t *testing.T) {
		assert.Equal(t, title.DefaultMinorWords, config.Default().Title.MinorWords)
		engine, err := New(nil)
		require.NoError(t, err)
		fixed, err := engine.FixTitle(t.Context(), "dil KA kya kare")
		require.NoError(t, err)
		assert.Equal(t, FixTitle("dil KA kya kare"), fixed)
	})
}

func TestLive(t *testing.T) {
	t.Run("Should require a loaded manager", func(t *testing.T) {
		_, err := NewLive(t.Context(), config.NewManager(config.NewService()))
		assert.ErrorContains(t, err, "no loaded configuration")
	})

	t.Run("Should take the manager from the context", func(t *testing.T) {
		m := config.NewManager(config.NewService(config.WithEnviron(func() []string { return nil })))
		_, err := m.Load(t.Context(), config.NewMapProvider(map[string]any{"tax.rates.books": 5}))
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close(t.Context()) })

		live, err := NewLive(config.ContextWithManager(t.Context(), m), nil)
		require.NoError(t, err)
		assert.Same(t, m.Get(), live.Engine().Config())
		res, err := live.Engine().CalculateTax(t.Context(), 100, "books")
		require.NoError(t, err)
		assert.Equal(t, 5, res.GSTRate)
	})

	t.Run("Should rebuild the engine when the configuration file changes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tally.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tax:\n  rates:\n    books: 5\n"), 0o644))
		m := config.NewManager(config.NewService(config.WithEnviron(func() []string { return nil })))
		m.SetDebounce(10 * time.Millisecond)
		_, err := m.Load(t.Context(), config.NewYAMLProvider(path))
		require.NoError(t, err)
		t.Cleanup(func() { _ = m.Close(t.Context()) })

		live, err := NewLive(t.Context(), m)
		require.NoError(t, err)
		first := live.Engine()
		res, err := first.CalculateTax(t.Context(), 100, "books")
		require.NoError(t, err)
		assert.Equal(t, 5, res.GSTRate)

		require.Eventually(t, func() bool {
			_ = os.WriteFile(path, []byte("tax:\n  rates:\n    books: 12\n"), 0o644)
			res, err := live.Engine().CalculateTax(t.Context(), 100, "books")
			return err == nil && res.GSTRate == 12
		}, 3*time.Second, 50*time.Millisecond)
		assert.NotSame(t, first, live.Engine())
		assert.NoError(t, live.Shutdown(t.Context()))
	})
}
