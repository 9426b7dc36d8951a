package logic

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// isEmptyValue reports whether an answer value counts as empty: nil/absent,
// a blank-after-trim string, an empty slice, or a map with no keys. The
// number 0 is not empty.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// hasTriggerAnswer reports whether a question holds an answer that can
// trigger its skip rule: present, non-nil, and not the empty string.
func hasTriggerAnswer(answers map[string]any, id string) bool {
	v, ok := answers[id]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// asSlice normalizes the slice shapes that survive JSON decoding.
func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// asNumber extracts a numeric value without parsing strings.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// toNumber coerces scalars to a number the way the ordering operators
// need: numeric types pass through, strings are parsed. Anything else,
// or a NaN result, reports false.
func toNumber(v any) (float64, bool) {
	if n, ok := asNumber(v); ok {
		return n, !math.IsNaN(n)
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// equalValues is strict equality across the JSON value shapes: numbers
// compare numerically regardless of Go type, strings exactly, everything
// else by deep equality.
func equalValues(left, right any) bool {
	if ln, ok := asNumber(left); ok {
		if rn, ok := asNumber(right); ok {
			return ln == rn
		}
		return false
	}
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		return ok && ls == rs
	}
	return reflect.DeepEqual(left, right)
}
