package aggregate

// Group is one bucket of a grouping, in first-seen order.
type Group[K comparable, V any] struct {
	Key   K
	Value V
}

// GroupBy collects items per key, preserving input order inside each group.
func GroupBy[T any, K comparable](items []T, key func(T) K) []Group[K, []T] {
	index := make(map[K]int)
	var groups []Group[K, []T]
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, []T]{Key: k})
		}
		groups[i].Value = append(groups[i].Value, item)
	}
	return groups
}

// SumBy totals value per key, keys in first-seen order.
func SumBy[T any, K comparable, N Number](items []T, key func(T) K, value func(T) N) []Group[K, N] {
	index := make(map[K]int)
	var groups []Group[K, N]
	for _, item := range items {
		k := key(item)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, N]{Key: k})
		}
		groups[i].Value += value(item)
	}
	return groups
}
