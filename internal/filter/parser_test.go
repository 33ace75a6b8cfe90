package filter

import (
	"testing"

	"github.com/harborlight/inquiro/internal/models"
)

func TestParse_BareValueSugar(t *testing.T) {
	expr, err := Parse(`{"category": "payments"}`)
	if err != nil {
		t.Fatalf("Failed to parse bare value filter: %v", err)
	}

	eq, ok := expr.(Eq)
	if !ok {
		t.Fatalf("Expected Eq expression, got %T", expr)
	}
	if eq.Field != "category" || eq.Value != "payments" {
		t.Errorf("Unexpected leaf: %+v", eq)
	}
}

func TestParse_CaseInsensitiveOptionalDollar(t *testing.T) {
	variants := []string{
		`{"title": {"$eq": "Chunking"}}`,
		`{"title": {"eq": "Chunking"}}`,
		`{"title": {"$EQ": "Chunking"}}`,
		`{"title": {"Eq": "Chunking"}}`,
	}

	for _, input := range variants {
		expr, err := Parse(input)
		if err != nil {
			t.Fatalf("Failed to parse %s: %v", input, err)
		}
		canonical, err := Canonical(expr)
		if err != nil {
			t.Fatalf("Failed to canonicalize %s: %v", input, err)
		}
		expected := `{"title":{"$eq":"Chunking"}}`
		if canonical != expected {
			t.Errorf("Input %s canonicalized to %s, expected %s", input, canonical, expected)
		}
	}
}

func TestParse_CanonicalRoundTrip(t *testing.T) {
	inputs := []string{
		`{"category": "payments"}`,
		`{"year": {"gt": 2020, "lt": 2024}}`,
		`{"$or": [{"region": "eu"}, {"region": {"IN": ["us", "au"]}}]}`,
		`{"pages": {"$between": [10, 20]}, "kind": {"ne": "draft"}}`,
		`{"tags": {"contains": "billing"}}`,
		`{"sku": {"$nin": ["a", "b"]}}`,
	}

	for _, input := range inputs {
		first, err := Parse(input)
		if err != nil {
			t.Fatalf("Failed to parse %s: %v", input, err)
		}
		canonical, err := Canonical(first)
		if err != nil {
			t.Fatalf("Failed to canonicalize %s: %v", input, err)
		}

		second, err := Parse(canonical)
		if err != nil {
			t.Fatalf("Canonical form %s failed to re-parse: %v", canonical, err)
		}
		recanonical, err := Canonical(second)
		if err != nil {
			t.Fatalf("Failed to re-canonicalize %s: %v", canonical, err)
		}

		if canonical != recanonical {
			t.Errorf("Canonical form is not a fixed point for %s:\nfirst:  %s\nsecond: %s", input, canonical, recanonical)
		}
	}
}

func TestParse_MultiKeyObjectIsAnd(t *testing.T) {
	expr, err := Parse(`{"year": {"$gt": 2020}, "category": "payments"}`)
	if err != nil {
		t.Fatalf("Failed to parse multi-key filter: %v", err)
	}

	and, ok := expr.(And)
	if !ok {
		t.Fatalf("Expected And expression, got %T", expr)
	}
	if len(and.Children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(and.Children))
	}
}

func TestParse_LogicalOperators(t *testing.T) {
	expr, err := Parse(`{"$or": [{"region": "eu"}, {"region": "us"}]}`)
	if err != nil {
		t.Fatalf("Failed to parse $or filter: %v", err)
	}

	or, ok := expr.(Or)
	if !ok {
		t.Fatalf("Expected Or expression, got %T", expr)
	}
	if len(or.Children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(or.Children))
	}
}

func TestParse_EmptyInput(t *testing.T) {
	expr, err := Parse("")
	if err != nil {
		t.Fatalf("Expected empty filter to parse as match-all, got %v", err)
	}
	if expr != nil {
		t.Errorf("Expected nil expression for empty input, got %+v", expr)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"invalid json", `{"title": `},
		{"non object root", `["title"]`},
		{"unknown operator", `{"title": {"$matches": "x"}}`},
		{"bare array operand", `{"tags": ["a", "b"]}`},
		{"between wrong arity", `{"year": {"$between": [2020]}}`},
		{"in scalar operand", `{"region": {"$in": "eu"}}`},
		{"logical scalar operand", `{"$or": {"region": "eu"}}`},
		{"logical empty array", `{"$and": []}`},
		{"empty operator object", `{"title": {}}`},
		{"nested logical in field", `{"title": {"$or": []}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.input)
			if err == nil {
				t.Fatalf("Expected syntax error for %s", tc.input)
			}
			var syntaxErr *models.FilterSyntaxError
			if !asFilterSyntaxError(err, &syntaxErr) {
				t.Errorf("Expected FilterSyntaxError, got %T: %v", err, err)
			}
		})
	}
}

func TestParse_ErrorNamesField(t *testing.T) {
	_, err := Parse(`{"year": {"$between": "not an array"}}`)
	if err == nil {
		t.Fatal("Expected syntax error")
	}
	var syntaxErr *models.FilterSyntaxError
	if !asFilterSyntaxError(err, &syntaxErr) {
		t.Fatalf("Expected FilterSyntaxError, got %T", err)
	}
	if syntaxErr.Field != "year" {
		t.Errorf("Expected error to name field 'year', got '%s'", syntaxErr.Field)
	}
}

func TestParse_NumericNotationNormalized(t *testing.T) {
	a, err := Parse(`{"year": {"$eq": 3}}`)
	if err != nil {
		t.Fatalf("Failed to parse integer notation: %v", err)
	}
	b, err := Parse(`{"year": {"$eq": 3.0}}`)
	if err != nil {
		t.Fatalf("Failed to parse float notation: %v", err)
	}

	ca, _ := Canonical(a)
	cb, _ := Canonical(b)
	if ca != cb {
		t.Errorf("Expected equal canonical forms for 3 and 3.0, got %s and %s", ca, cb)
	}
}

func asFilterSyntaxError(err error, target **models.FilterSyntaxError) bool {
	if e, ok := err.(*models.FilterSyntaxError); ok {
		*target = e
		return true
	}
	return false
}
