package filter

import (
	"encoding/json"
	"strings"
)

// Matches evaluates an expression against one chunk's metadata map. A nil
// expression matches everything. Missing fields fail every comparison except
// Ne and NotIn, which treat absence as "not equal".
func Matches(expr Expr, metadata map[string]interface{}) bool {
	if expr == nil {
		return true
	}

	switch e := expr.(type) {
	case Eq:
		actual, ok := metadata[e.Field]
		return ok && valuesEqual(actual, e.Value)
	case Ne:
		actual, ok := metadata[e.Field]
		return !ok || !valuesEqual(actual, e.Value)
	case Gt:
		actual, ok := metadata[e.Field]
		if !ok {
			return false
		}
		cmp, comparable := compareValues(actual, e.Value)
		return comparable && cmp > 0
	case Lt:
		actual, ok := metadata[e.Field]
		if !ok {
			return false
		}
		cmp, comparable := compareValues(actual, e.Value)
		return comparable && cmp < 0
	case In:
		actual, ok := metadata[e.Field]
		if !ok {
			return false
		}
		for _, candidate := range e.Values {
			if valuesEqual(actual, candidate) {
				return true
			}
		}
		return false
	case NotIn:
		actual, ok := metadata[e.Field]
		if !ok {
			return true
		}
		for _, candidate := range e.Values {
			if valuesEqual(actual, candidate) {
				return false
			}
		}
		return true
	case Between:
		actual, ok := metadata[e.Field]
		if !ok {
			return false
		}
		low, lowOK := compareValues(actual, e.Low)
		high, highOK := compareValues(actual, e.High)
		return lowOK && highOK && low >= 0 && high <= 0
	case Contains:
		actual, ok := metadata[e.Field]
		if !ok {
			return false
		}
		return containsValue(actual, e.Value)
	case And:
		for _, child := range e.Children {
			if !Matches(child, metadata) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range e.Children {
			if Matches(child, metadata) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// valuesEqual compares with numeric coercion so 3 and 3.0 are equal whether
// they arrived as int, float64 or json.Number.
func valuesEqual(a, b interface{}) bool {
	if fa, aok := toFloat(a); aok {
		fb, bok := toFloat(b)
		return bok && fa == fb
	}
	if sa, aok := a.(string); aok {
		sb, bok := b.(string)
		return bok && sa == sb
	}
	if ba, aok := a.(bool); aok {
		bb, bok := b.(bool)
		return bok && ba == bb
	}
	return a == b
}

// compareValues orders two operands. Numbers order numerically, strings
// lexically; mixed or unordered types report not comparable.
func compareValues(a, b interface{}) (int, bool) {
	if fa, aok := toFloat(a); aok {
		fb, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, aok := a.(string); aok {
		sb, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

// containsValue handles both string substring matching and array membership
func containsValue(actual, operand interface{}) bool {
	if s, ok := actual.(string); ok {
		sub, ok := operand.(string)
		return ok && strings.Contains(s, sub)
	}
	if items, ok := actual.([]interface{}); ok {
		for _, item := range items {
			if valuesEqual(item, operand) {
				return true
			}
		}
		return false
	}
	if items, ok := actual.([]string); ok {
		for _, item := range items {
			if valuesEqual(item, operand) {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
