// Package filter implements the JSON predicate language accepted on query
// requests. A filter string is compiled into a closed expression tree whose
// leaves are canonical $-prefixed comparisons; the tree is handed opaquely to
// the vector store, which evaluates it against its own metadata schema.
package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Expr is one node of the predicate tree. The variant set is closed: every
// node is a comparison leaf or an And/Or branch, which keeps evaluation
// exhaustive.
type Expr interface {
	exprNode()
	// append writes the node into a canonical JSON object or array element
	canonical() interface{}
}

// Eq matches fields equal to a value
type Eq struct {
	Field string
	Value interface{}
}

// Ne matches fields not equal to a value
type Ne struct {
	Field string
	Value interface{}
}

// Gt matches fields greater than a value
type Gt struct {
	Field string
	Value interface{}
}

// Lt matches fields less than a value
type Lt struct {
	Field string
	Value interface{}
}

// In matches fields equal to any listed value
type In struct {
	Field  string
	Values []interface{}
}

// NotIn matches fields equal to none of the listed values
type NotIn struct {
	Field  string
	Values []interface{}
}

// Between matches fields within [Low, High] inclusive
type Between struct {
	Field string
	Low   interface{}
	High  interface{}
}

// Contains matches string fields containing a substring, or array fields
// containing a member
type Contains struct {
	Field string
	Value interface{}
}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Children []Expr
}

// Or matches when at least one child matches
type Or struct {
	Children []Expr
}

func (Eq) exprNode()      {}
func (Ne) exprNode()      {}
func (Gt) exprNode()      {}
func (Lt) exprNode()      {}
func (In) exprNode()      {}
func (NotIn) exprNode()   {}
func (Between) exprNode() {}
func (Contains) exprNode() {}
func (And) exprNode()     {}
func (Or) exprNode()      {}

func (e Eq) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$eq": e.Value}}
}

func (e Ne) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$ne": e.Value}}
}

func (e Gt) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$gt": e.Value}}
}

func (e Lt) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$lt": e.Value}}
}

func (e In) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$in": e.Values}}
}

func (e NotIn) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$nin": e.Values}}
}

func (e Between) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$between": []interface{}{e.Low, e.High}}}
}

func (e Contains) canonical() interface{} {
	return map[string]interface{}{e.Field: map[string]interface{}{"$contains": e.Value}}
}

func (e And) canonical() interface{} {
	children := make([]interface{}, len(e.Children))
	for i, child := range e.Children {
		children[i] = child.canonical()
	}
	return map[string]interface{}{"$and": children}
}

func (e Or) canonical() interface{} {
	children := make([]interface{}, len(e.Children))
	for i, child := range e.Children {
		children[i] = child.canonical()
	}
	return map[string]interface{}{"$or": children}
}

// Canonical returns the canonical JSON form of the expression: every
// operator $-prefixed and lowercase, bare-value sugar expanded to $eq.
// Parsing the canonical form yields an equal tree.
func Canonical(expr Expr) (string, error) {
	if expr == nil {
		return "", nil
	}

	// A single-field And collapses to its field object so canonical output
	// round-trips through Parse without growing a wrapper per cycle.
	node := expr.canonical()
	if and, ok := expr.(And); ok && len(and.Children) == 1 {
		node = and.Children[0].canonical()
	}

	data, err := marshalSorted(node)
	if err != nil {
		return "", fmt.Errorf("failed to serialize filter: %w", err)
	}
	return string(data), nil
}

// marshalSorted marshals with deterministic key order so canonical output is
// stable across runs.
func marshalSorted(node interface{}) ([]byte, error) {
	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			keyData, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			sb.Write(keyData)
			sb.WriteByte(':')
			valData, err := marshalSorted(v[k])
			if err != nil {
				return nil, err
			}
			sb.Write(valData)
		}
		sb.WriteByte('}')
		return []byte(sb.String()), nil
	case []interface{}:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			itemData, err := marshalSorted(item)
			if err != nil {
				return nil, err
			}
			sb.Write(itemData)
		}
		sb.WriteByte(']')
		return []byte(sb.String()), nil
	default:
		return json.Marshal(v)
	}
}
