// Package aggregate provides single-pass reductions over validated
// collections. Sums and extrema are built on Fold; GroupBy, SumBy and the
// frequency counters keep a local index map instead. No pass touches state
// outside its own call, and every keyed result keeps first-seen order.
package aggregate

import "cmp"

// Fold reduces items left to right, threading the accumulator through step.
func Fold[T, A any](items []T, init A, step func(A, T) A) A {
	acc := init
	for _, item := range items {
		acc = step(acc, item)
	}
	return acc
}

// Number covers the numeric types aggregations operate on.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Sum adds values.
func Sum[N Number](values []N) N {
	return Fold(values, N(0), func(acc N, v N) N { return acc + v })
}

// SumOf adds the projection of every item.
func SumOf[T any, N Number](items []T, value func(T) N) N {
	return Fold(items, N(0), func(acc N, item T) N { return acc + value(item) })
}

// Extremum tracks the best item seen so far under a strict comparison, so
// ties keep the earliest item.
type Extremum[T any] struct {
	Item  T
	Index int
	Found bool
}

// Step admits item at position index. better reports whether a strictly
// beats b.
func (e Extremum[T]) Step(item T, index int, better func(a, b T) bool) Extremum[T] {
	if !e.Found || better(item, e.Item) {
		return Extremum[T]{Item: item, Index: index, Found: true}
	}
	return e
}

// ExtremumBy scans items once. The result is not Found for an empty slice.
func ExtremumBy[T any](items []T, better func(a, b T) bool) Extremum[T] {
	var e Extremum[T]
	for i, item := range items {
		e = e.Step(item, i, better)
	}
	return e
}

// MaxBy returns the item with the greatest key, the first one on ties.
func MaxBy[T any, K cmp.Ordered](items []T, key func(T) K) (T, bool) {
	e := ExtremumBy(items, func(a, b T) bool { return key(a) > key(b) })
	return e.Item, e.Found
}

// MinBy returns the item with the smallest key, the first one on ties.
func MinBy[T any, K cmp.Ordered](items []T, key func(T) K) (T, bool) {
	e := ExtremumBy(items, func(a, b T) bool { return key(a) < key(b) })
	return e.Item, e.Found
}

// All reports whether pred holds for every item. It is true for no items.
func All[T any](items []T, pred func(T) bool) bool {
	for _, item := range items {
		if !pred(item) {
			return false
		}
	}
	return true
}

// Any reports whether pred holds for at least one item.
func Any[T any](items []T, pred func(T) bool) bool {
	for _, item := range items {
		if pred(item) {
			return true
		}
	}
	return false
}

// Partition splits items by pred, keeping input order on both sides.
func Partition[T any](items []T, pred func(T) bool) (matched, rest []T) {
	for _, item := range items {
		if pred(item) {
			matched = append(matched, item)
		} else {
			rest = append(rest, item)
		}
	}
	return matched, rest
}
