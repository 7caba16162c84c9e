package format

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry is one line of a Breakdown.
type Entry struct {
	Key   string
	Value float64
}

// Breakdown is an ordered key to amount mapping. It marshals to a JSON object
// whose keys keep their slice order.
type Breakdown []Entry

// Get returns the amount for key.
func (b Breakdown) Get(key string) (float64, bool) {
	for _, e := range b {
		if e.Key == key {
			return e.Value, true
		}
	}
	return 0, false
}

func (b Breakdown) Keys() []string {
	keys := make([]string, len(b))
	for i, e := range b {
		keys[i] = e.Key
	}
	return keys
}

// Total sums the amounts in key order with Sum.
func (b Breakdown) Total() float64 {
	values := make([]float64, len(b))
	for i, e := range b {
		values[i] = e.Value
	}
	return Sum(values...)
}

// Map returns the breakdown as a plain map, losing order.
func (b Breakdown) Map() map[string]float64 {
	out := make(map[string]float64, len(b))
	for _, e := range b {
		out[e.Key] = e.Value
	}
	return out
}

func (b Breakdown) ordered() *orderedmap.OrderedMap[string, float64] {
	om := orderedmap.New[string, float64](len(b))
	for _, e := range b {
		om.Set(e.Key, e.Value)
	}
	return om
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	return b.ordered().MarshalJSON()
}

func (b *Breakdown) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, float64]()
	if err := om.UnmarshalJSON(data); err != nil {
		return err
	}
	out := make(Breakdown, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Entry{Key: pair.Key, Value: pair.Value})
	}
	*b = out
	return nil
}
