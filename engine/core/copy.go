package core

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// DeepCopy returns a deep copy of v.
//
// Ordered objects are rebuilt pair by pair because the generic copier only
// sees exported fields. Everything else goes through deepcopy.Copy.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	switch src := any(v).(type) {
	case *Object:
		if src == nil {
			return zero, nil
		}
		result, ok := any(copyObject(src)).(T)
		if !ok {
			return zero, fmt.Errorf("failed to cast copied object to type %T", zero)
		}
		return result, nil
	case map[string]any:
		if src == nil {
			return zero, nil
		}
		result, ok := any(copyMap(src)).(T)
		if !ok {
			return zero, fmt.Errorf("failed to cast copied map to type %T", zero)
		}
		return result, nil
	case []any:
		if src == nil {
			return zero, nil
		}
		result, ok := any(copySlice(src)).(T)
		if !ok {
			return zero, fmt.Errorf("failed to cast copied slice to type %T", zero)
		}
		return result, nil
	default:
		copied := deepcopy.Copy(v)
		if copied == nil {
			return zero, nil
		}
		result, ok := copied.(T)
		if !ok {
			return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
		}
		return result, nil
	}
}

func copyValue(v any) any {
	switch src := v.(type) {
	case *Object:
		if src == nil {
			return src
		}
		return copyObject(src)
	case map[string]any:
		if src == nil {
			return src
		}
		return copyMap(src)
	case []any:
		if src == nil {
			return src
		}
		return copySlice(src)
	default:
		return deepcopy.Copy(v)
	}
}

func copyObject(src *Object) *Object {
	dst := NewObject()
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst.Set(pair.Key, copyValue(pair.Value))
	}
	return dst
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copySlice(src []any) []any {
	dst := make([]any, len(src))
	for i, v := range src {
		dst[i] = copyValue(v)
	}
	return dst
}
