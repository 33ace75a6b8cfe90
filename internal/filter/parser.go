package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harborlight/inquiro/internal/models"
)

// Parse compiles a filter string into an expression tree. The grammar is a
// JSON object whose leaf values are bare operands (sugar for $eq) or objects
// keyed by an operator token; tokens are case-insensitive and the leading $
// is optional. Multiple keys in one object combine with AND. Malformed input
// fails with a FilterSyntaxError naming the offending field; parsing has no
// side effects and never partially succeeds.
func Parse(input string) (Expr, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}

	decoder := json.NewDecoder(strings.NewReader(trimmed))
	decoder.UseNumber()

	var raw interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, models.NewFilterSyntaxError("", fmt.Sprintf("not valid JSON: %v", err))
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, models.NewFilterSyntaxError("", "filter must be a JSON object")
	}

	return parseObject(obj)
}

// parseObject parses one filter object. Keys are either logical operators
// ($and / $or) or metadata field names.
func parseObject(obj map[string]interface{}) (Expr, error) {
	if len(obj) == 0 {
		return nil, models.NewFilterSyntaxError("", "filter object must not be empty")
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	children := make([]Expr, 0, len(obj))
	for _, key := range keys {
		value := obj[key]

		if op, isLogical := logicalOp(key); isLogical {
			expr, err := parseLogical(key, op, value)
			if err != nil {
				return nil, err
			}
			children = append(children, expr)
			continue
		}

		expr, err := parseField(key, value)
		if err != nil {
			return nil, err
		}
		children = append(children, expr)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

// parseLogical parses a $and / $or array of sub-objects
func parseLogical(key, op string, value interface{}) (Expr, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, models.NewFilterSyntaxError(key, "logical operator requires an array of filter objects")
	}
	if len(items) == 0 {
		return nil, models.NewFilterSyntaxError(key, "logical operator requires at least one filter object")
	}

	children := make([]Expr, 0, len(items))
	for _, item := range items {
		sub, ok := item.(map[string]interface{})
		if !ok {
			return nil, models.NewFilterSyntaxError(key, "logical operator elements must be filter objects")
		}
		expr, err := parseObject(sub)
		if err != nil {
			return nil, err
		}
		children = append(children, expr)
	}

	if op == "or" {
		return Or{Children: children}, nil
	}
	return And{Children: children}, nil
}

// parseField parses one field entry: bare value sugar or an operator object
func parseField(field string, value interface{}) (Expr, error) {
	opObj, ok := value.(map[string]interface{})
	if !ok {
		// Bare operand is sugar for $eq. Arrays are ambiguous and rejected.
		if _, isArray := value.([]interface{}); isArray {
			return nil, models.NewFilterSyntaxError(field, "bare array operand is ambiguous, use $in or $between")
		}
		return Eq{Field: field, Value: normalizeOperand(value)}, nil
	}

	if len(opObj) == 0 {
		return nil, models.NewFilterSyntaxError(field, "operator object must not be empty")
	}

	opKeys := make([]string, 0, len(opObj))
	for k := range opObj {
		opKeys = append(opKeys, k)
	}
	sort.Strings(opKeys)

	children := make([]Expr, 0, len(opObj))
	for _, opKey := range opKeys {
		expr, err := parseOperator(field, opKey, opObj[opKey])
		if err != nil {
			return nil, err
		}
		children = append(children, expr)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

// parseOperator builds one comparison leaf
func parseOperator(field, opKey string, operand interface{}) (Expr, error) {
	op := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(opKey), "$"))

	switch op {
	case "eq":
		return Eq{Field: field, Value: normalizeOperand(operand)}, nil
	case "ne":
		return Ne{Field: field, Value: normalizeOperand(operand)}, nil
	case "gt":
		return Gt{Field: field, Value: normalizeOperand(operand)}, nil
	case "lt":
		return Lt{Field: field, Value: normalizeOperand(operand)}, nil
	case "contains":
		return Contains{Field: field, Value: normalizeOperand(operand)}, nil
	case "in", "nin":
		items, ok := operand.([]interface{})
		if !ok {
			return nil, models.NewFilterSyntaxError(field, fmt.Sprintf("$%s requires an array operand", op))
		}
		values := make([]interface{}, len(items))
		for i, item := range items {
			values[i] = normalizeOperand(item)
		}
		if op == "in" {
			return In{Field: field, Values: values}, nil
		}
		return NotIn{Field: field, Values: values}, nil
	case "between":
		items, ok := operand.([]interface{})
		if !ok || len(items) != 2 {
			return nil, models.NewFilterSyntaxError(field, "$between requires a two-element [low, high] array")
		}
		return Between{Field: field, Low: normalizeOperand(items[0]), High: normalizeOperand(items[1])}, nil
	case "and", "or":
		return nil, models.NewFilterSyntaxError(field, fmt.Sprintf("$%s is not valid inside a field comparison", op))
	default:
		return nil, models.NewFilterSyntaxError(field, fmt.Sprintf("unknown operator %q", opKey))
	}
}

// logicalOp reports whether a top-level key is $and / $or (case-insensitive,
// $ optional)
func logicalOp(key string) (string, bool) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "$"))
	if normalized == "and" || normalized == "or" {
		return normalized, true
	}
	return "", false
}

// normalizeOperand converts json.Number operands to float64 so equal numbers
// compare equal regardless of their source notation.
func normalizeOperand(value interface{}) interface{} {
	if num, ok := value.(json.Number); ok {
		if f, err := num.Float64(); err == nil {
			return f
		}
		return num.String()
	}
	return value
}
