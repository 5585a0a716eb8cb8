package ninjadb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Operator is a comparison operator allowed in a filter triple.
type Operator string

const (
	OpEqual        Operator = "=="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="

	// OpNotEqual is recognised only to be rejected: Firestore cannot serve it,
	// so no backend accepts it.
	OpNotEqual Operator = "!="
)

// Operators lists the supported operators.
var Operators = []Operator{OpEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual}

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Filter is the (field, operator, value) triple used to query every backend.
// Multiple filters passed to Fetch are combined with AND.
type Filter struct {
	Field string
	Op    Operator
	Value any
}

// F builds a filter triple.
func F(field string, op Operator, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Eq is shorthand for F(field, OpEqual, value).
func Eq(field string, value any) Filter {
	return F(field, OpEqual, value)
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// Validate checks the operator, the field name and the value type.
func (f Filter) Validate() error {
	if f.Op == OpNotEqual {
		return WithContext(ErrUnsupportedOperator, map[string]interface{}{
			"field":    f.Field,
			"operator": string(f.Op),
			"reason":   "the '!=' operator is not supported",
		})
	}
	if !f.Op.Valid() {
		return WithContext(ErrUnsupportedOperator, map[string]interface{}{
			"field":    f.Field,
			"operator": string(f.Op),
		})
	}
	if strings.TrimSpace(f.Field) == "" {
		return WithContext(ErrMalformedFilter, map[string]interface{}{
			"reason": "empty field name",
		})
	}
	if reason := fieldNameProblem(f.Field); reason != "" {
		return WithContext(ErrMalformedFilter, map[string]interface{}{
			"field":  f.Field,
			"reason": reason,
		})
	}
	if f.Field == IDField {
		return WithContext(ErrMalformedFilter, map[string]interface{}{
			"field":  f.Field,
			"reason": "filtering on the id is not supported, use Get",
		})
	}
	switch f.Value.(type) {
	case nil, string, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	}
	return WithContext(ErrMalformedFilter, map[string]interface{}{
		"field":  f.Field,
		"type":   fmt.Sprintf("%T", f.Value),
		"reason": "value must be a string, number, bool, time or nil",
	})
}

// ValidateFilters validates every filter, stopping at the first error.
func ValidateFilters(filters []Filter) error {
	for i, f := range filters {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("filter %d: %w", i, err)
		}
	}
	return nil
}

// normalizeFilters validates filters and converts their values to storage types.
func normalizeFilters(filters []Filter) ([]Filter, error) {
	if err := ValidateFilters(filters); err != nil {
		return nil, err
	}
	out := make([]Filter, len(filters))
	for i, f := range filters {
		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		out[i] = Filter{Field: f.Field, Op: f.Op, Value: v}
	}
	return out, nil
}

// ParseFilter converts untyped input, such as decoded JSON, into a Filter.
// The input must be a sequence of exactly three elements: field, operator, value.
func ParseFilter(raw any) (Filter, error) {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	case Filter:
		return v, v.Validate()
	default:
		return Filter{}, WithContext(ErrMalformedFilter, map[string]interface{}{
			"type":   fmt.Sprintf("%T", raw),
			"reason": "the query must be a list",
		})
	}

	if len(items) != 3 {
		return Filter{}, WithContext(ErrMalformedFilter, map[string]interface{}{
			"length": len(items),
			"reason": "the query must have exactly three elements",
		})
	}

	field, ok := items[0].(string)
	if !ok {
		return Filter{}, WithContext(ErrMalformedFilter, map[string]interface{}{
			"reason": "field must be a string",
		})
	}
	op, ok := items[1].(string)
	if !ok {
		return Filter{}, WithContext(ErrMalformedFilter, map[string]interface{}{
			"reason": "operator must be a string",
		})
	}

	f := Filter{Field: field, Op: Operator(op), Value: items[2]}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// ParseFilterString parses the command-line form "field op value".
// The value is typed by its literal: true/false, integers, floats, and
// anything else (optionally quoted) as a string.
func ParseFilterString(s string) (Filter, error) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return Filter{}, WithContext(ErrMalformedFilter, map[string]interface{}{
			"input":  s,
			"reason": `expected "field operator value"`,
		})
	}

	// Re-join the value so that quoted strings may contain spaces
	rest := strings.TrimSpace(s)
	for _, p := range parts[:2] {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, p))
	}

	return ParseFilter([]any{parts[0], parts[1], parseLiteral(rest)})
}

func parseLiteral(s string) any {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
