package aggregate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name  string
	score float64
}

func TestFold(t *testing.T) {
	t.Run("Should thread the accumulator left to right", func(t *testing.T) {
		got := Fold([]string{"a", "b", "c"}, "", func(acc string, s string) string { return acc + s })
		assert.Equal(t, "abc", got)
	})

	t.Run("Should sum values and projections", func(t *testing.T) {
		assert.Equal(t, 6, Sum([]int{1, 2, 3}))
		assert.Equal(t, 0.0, Sum([]float64{}))
		total := SumOf([]entry{{"maths", 85}, {"science", 92}}, func(e entry) float64 { return e.score })
		assert.InDelta(t, 177.0, total, 1e-9)
	})
}

func TestExtremum(t *testing.T) {
	items := []entry{{"maths", 85}, {"science", 92}, {"english", 92}, {"hindi", 70}, {"art", 70}}

	t.Run("Should keep the first item on ties", func(t *testing.T) {
		best, ok := MaxBy(items, func(e entry) float64 { return e.score })
		require.True(t, ok)
		assert.Equal(t, "science", best.name)

		worst, ok := MinBy(items, func(e entry) float64 { return e.score })
		require.True(t, ok)
		assert.Equal(t, "hindi", worst.name)
	})

	t.Run("Should report the index of the extremum", func(t *testing.T) {
		e := ExtremumBy(items, func(a, b entry) bool { return a.score > b.score })
		assert.Equal(t, 1, e.Index)
	})

	t.Run("Should report nothing for an empty collection", func(t *testing.T) {
		_, ok := MaxBy([]entry{}, func(e entry) float64 { return e.score })
		assert.False(t, ok)
	})
}

func TestCount(t *testing.T) {
	self := func(s string) (string, bool) { return s, s != "" }

	t.Run("Should resolve ties to the first encountered key", func(t *testing.T) {
		best, ok := MostFrequent([]string{"A", "B", "B", "A"}, self)
		require.True(t, ok)
		assert.Equal(t, "A", best)
	})

	t.Run("Should pick the strict maximum", func(t *testing.T) {
		f := Count([]string{"A", "B", "", "B"}, self)
		assert.Equal(t, "B", f.Best)
		assert.Equal(t, 2, f.BestCount)
		assert.Equal(t, []Group[string, int]{{Key: "A", Value: 1}, {Key: "B", Value: 2}}, f.Counts)
	})

	t.Run("Should report nothing when no item carries a key", func(t *testing.T) {
		_, ok := MostFrequent([]string{"", ""}, self)
		assert.False(t, ok)
	})
}

func TestGrouping(t *testing.T) {
	words := []string{"rent", "food", "rent", "fuel", "food"}

	t.Run("Should sum per key in first-seen order", func(t *testing.T) {
		amounts := map[string]float64{"rent": 100, "food": 20, "fuel": 5}
		groups := SumBy(words, func(s string) string { return s }, func(s string) float64 { return amounts[s] })

		assert.Equal(t, []Group[string, float64]{
			{Key: "rent", Value: 200},
			{Key: "food", Value: 40},
			{Key: "fuel", Value: 5},
		}, groups)
	})

	t.Run("Should group items keeping their order", func(t *testing.T) {
		groups := GroupBy(words, func(s string) byte { return s[0] })
		require.Len(t, groups, 2)
		assert.Equal(t, []string{"rent", "rent"}, groups[0].Value)
		assert.Equal(t, []string{"food", "fuel", "food"}, groups[1].Value)
	})

	t.Run("Should partition preserving order", func(t *testing.T) {
		r, rest := Partition(words, func(s string) bool { return strings.HasPrefix(s, "f") })
		assert.Equal(t, []string{"food", "fuel", "food"}, r)
		assert.Equal(t, []string{"rent", "rent"}, rest)
	})

	t.Run("Should short-circuit quantifiers", func(t *testing.T) {
		calls := 0
		isRent := func(s string) bool { calls++; return s == "rent" }
		assert.False(t, All(words, isRent))
		assert.Equal(t, 2, calls)
		assert.True(t, Any(words, isRent))
		assert.True(t, All([]string{}, isRent))
		assert.False(t, Any([]string{}, isRent))
	})
}
