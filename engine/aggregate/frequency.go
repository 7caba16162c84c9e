package aggregate

// Frequency is the result of counting keys over a collection.
type Frequency[K comparable] struct {
	Counts    []Group[K, int]
	Best      K
	BestCount int
	Found     bool
}

// Count tallies the keys of items. key reports false for items that carry no
// key; those are skipped. Best is the key with the highest count, and on a
// tie the key encountered first in the input, not the first to reach the count.
func Count[T any, K comparable](items []T, key func(T) (K, bool)) Frequency[K] {
	index := make(map[K]int)
	var counts []Group[K, int]
	for _, item := range items {
		k, ok := key(item)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(counts)
			index[k] = i
			counts = append(counts, Group[K, int]{Key: k})
		}
		counts[i].Value++
	}
	best := ExtremumBy(counts, func(a, b Group[K, int]) bool { return a.Value > b.Value })
	return Frequency[K]{
		Counts:    counts,
		Best:      best.Item.Key,
		BestCount: best.Item.Value,
		Found:     best.Found,
	}
}

// MostFrequent returns the most frequent key, first-seen on ties.
func MostFrequent[T any, K comparable](items []T, key func(T) (K, bool)) (K, bool) {
	f := Count(items, key)
	return f.Best, f.Found
}
