package pipeline

import (
	"encoding/json"
	"math"

	"gorm.io/datatypes"
)

// Document values arrive from three places: Go literals, JSON request bodies
// (float64) and JSONMap columns (json.Number). The helpers below accept all of them.

// AsString returns v as a string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsSlice returns v as a generic slice.
func AsSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// AsMap returns v as a string-keyed map.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case datatypes.JSONMap:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// AsFloat returns any numeric v as float64.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IsInteger reports whether v is a whole number of any numeric representation.
func IsInteger(v any) bool {
	switch t := v.(type) {
	case int, int32, int64, uint, uint64:
		return true
	case json.Number:
		_, err := t.Int64()
		return err == nil
	default:
		f, ok := AsFloat(v)
		return ok && !math.IsInf(f, 0) && f == math.Trunc(f)
	}
}

// StorageKey returns the object key held by an output or result document
// under s3Key, s3_key or key, or "".
func StorageKey(doc map[string]any) string {
	for _, k := range []string{"s3Key", "s3_key", "key"} {
		if s, ok := AsString(doc[k]); ok && s != "" {
			return s
		}
	}
	return ""
}

// CloneDoc deep-copies a document.
func CloneDoc(m datatypes.JSONMap) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case datatypes.JSONMap:
		return CloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
