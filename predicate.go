package ninjadb

import (
	"strings"
	"time"
)

// predicate is the file store's compiled form of a filter list: a conjunction
// of field comparisons evaluated directly against decoded documents.
type predicate []fieldComparison

type fieldComparison struct {
	field string
	op    Operator
	value any
}

// compilePredicate turns validated, normalized filters into a predicate.
// An empty filter list matches every document.
func compilePredicate(filters []Filter) predicate {
	p := make(predicate, len(filters))
	for i, f := range filters {
		p[i] = fieldComparison{field: f.Field, op: f.Op, value: f.Value}
	}
	return p
}

// Match reports whether doc satisfies every comparison.
func (p predicate) Match(doc Document) bool {
	for _, c := range p {
		if !c.match(doc) {
			return false
		}
	}
	return true
}

func (c fieldComparison) match(doc Document) bool {
	actual, ok := doc[c.field]
	if !ok {
		return false
	}

	cmp, ok := compareValues(actual, c.value)
	if !ok {
		return false
	}

	switch c.op {
	case OpEqual:
		return cmp == 0
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}
	return false
}

// compareValues orders a stored value against a filter value.
// ok is false when the two values are not comparable.
func compareValues(actual, want any) (int, bool) {
	switch w := want.(type) {
	case nil:
		if actual == nil {
			return 0, true
		}
		return 0, false

	case int64, float64:
		a, ok := toFloat(actual)
		if !ok {
			return 0, false
		}
		// Exact comparison when both sides are integers
		if ai, aok := actual.(int64); aok {
			if wi, wok := w.(int64); wok {
				return compareOrdered(ai, wi), true
			}
		}
		wf, _ := toFloat(w)
		return compareOrdered(a, wf), true

	case string:
		a, ok := actual.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(a, w), true

	case bool:
		a, ok := actual.(bool)
		if !ok {
			return 0, false
		}
		return compareOrdered(boolRank(a), boolRank(w)), true

	case time.Time:
		a, ok := toTime(actual)
		if !ok {
			return 0, false
		}
		return a.Compare(w), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func compareOrdered[T int | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
