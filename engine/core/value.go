package core

import (
	"encoding/json"
	"math"
	"reflect"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that remembers key insertion order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Field is a single key/value pair of an object, in iteration order.
type Field struct {
	Key   string
	Value any
}

// Number reports whether v is numeric and returns it as float64. Go numeric
// kinds and json.Number qualify; strings and booleans never do.
func Number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case nil, bool, string:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// Finite reports whether f is neither NaN nor infinite.
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// String returns v as a string when it is one.
func String(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Fields returns the entries of an object value. Ordered objects keep their
// insertion order; plain Go maps, which have none, are iterated by sorted key.
func Fields(v any) ([]Field, bool) {
	switch m := v.(type) {
	case *Object:
		if m == nil {
			return nil, false
		}
		out := make([]Field, 0, m.Len())
		for pair := m.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, Field{Key: pair.Key, Value: pair.Value})
		}
		return out, true
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make([]Field, 0, len(m))
		for _, k := range keys {
			out = append(out, Field{Key: k, Value: m[k]})
		}
		return out, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		default:
			return 0
		}
	})
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Key: k.String(), Value: rv.MapIndex(k).Interface()})
	}
	return out, true
}

// IsObject reports whether v is an object value.
func IsObject(v any) bool {
	_, ok := Fields(v)
	return ok
}

// Lookup returns the value stored under key in an object value.
func Lookup(v any, key string) (any, bool) {
	switch m := v.(type) {
	case *Object:
		if m == nil {
			return nil, false
		}
		return m.Get(key)
	case map[string]any:
		val, ok := m[key]
		return val, ok
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}
	val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !val.IsValid() {
		return nil, false
	}
	return val.Interface(), true
}

// List returns the elements of a list value. Any Go slice or array qualifies
// except byte slices.
func List(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, l != nil
	case nil, []byte, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return nil, false
		}
	case reflect.Array:
	default:
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Plain converts v to plain Go JSON values: objects become map[string]any,
// lists become []any and every number becomes float64.
func Plain(v any) any {
	if f, ok := Number(v); ok {
		return f
	}
	if fields, ok := Fields(v); ok {
		out := make(map[string]any, len(fields))
		for _, f := range fields {
			out[f.Key] = Plain(f.Value)
		}
		return out
	}
	if items, ok := List(v); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = Plain(item)
		}
		return out
	}
	return v
}
