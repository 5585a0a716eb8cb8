package ninjadb

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// IDField is the field every rehydrated document carries its id under.
// It is never persisted as part of the payload.
const IDField = "id"

// Document is the schema-less payload exchanged with a DocumentStore.
type Document map[string]any

// Record is a stored document together with its normalized id.
type Record struct {
	ID     string
	Fields Document
}

// Fields is the partial update accepted by Edit.
type Fields = Document

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// WithID returns a copy of the record fields with the id injected under IDField.
func (r Record) WithID() Document {
	out := r.Fields.Clone()
	out[IDField] = r.ID
	return out
}

// NormalizeDocument returns a copy of doc with every value converted to the
// canonical storage types: int64, float64, string, bool, time.Time, nil,
// []any and map[string]any. The id field is dropped.
func NormalizeDocument(doc Document) (Document, error) {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		if reason := fieldNameProblem(k); reason != "" {
			return nil, WithContext(ErrInvalidData, map[string]interface{}{
				"field":  k,
				"reason": reason,
			})
		}
		nv, err := normalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// fieldNameProblem reports why name cannot be a top-level field. Dots and a
// leading '$' mean paths and operators to MongoDB, so they are refused on
// every backend.
func fieldNameProblem(name string) string {
	switch {
	case name == "":
		return "empty field name"
	case strings.Contains(name, "."):
		return "field name must not contain '.'"
	case strings.HasPrefix(name, "$"):
		return "field name must not start with '$'"
	}
	return ""
}

func normalizeValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, string, int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uintToInt64(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintToInt64(val)
	case float32:
		return float64(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, WithContext(ErrInvalidData, map[string]interface{}{"number": string(val)})
		}
		return f, nil
	case time.Time:
		return val.UTC(), nil
	case *time.Time:
		if val == nil {
			return nil, nil
		}
		return val.UTC(), nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			nv, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			nv, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case Document:
		return normalizeValue(map[string]any(val))
	}

	// Typed slices ([]string, []int, ...) and pointers to scalars
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			nv, err := normalizeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, nil
		}
		return normalizeValue(rv.Elem().Interface())
	}

	return nil, WithContext(ErrInvalidData, map[string]interface{}{
		"type":   fmt.Sprintf("%T", v),
		"reason": "unsupported value type",
	})
}

func uintToInt64(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"value":  u,
			"reason": "integer overflows int64",
		})
	}
	return int64(u), nil
}

// encodeDocument serializes a document for blob storage. Floats always
// carry a decimal point or exponent so they decode as float64 again.
func encodeDocument(doc Document) ([]byte, error) {
	marked := make(map[string]any, len(doc))
	for k, v := range doc {
		marked[k] = markFloats(v)
	}
	return json.Marshal(marked)
}

// storedFloat is a float64 that never serializes as an integer literal.
type storedFloat float64

func (f storedFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("unsupported float value %v", v)
	}
	b := strconv.AppendFloat(nil, v, 'g', -1, 64)
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

func markFloats(v any) any {
	switch val := v.(type) {
	case float64:
		return storedFloat(val)
	case float32:
		return storedFloat(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = markFloats(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = markFloats(item)
		}
		return out
	case Document:
		return markFloats(map[string]any(val))
	}
	return v
}

// decodeDocument parses a stored document, keeping integers as int64.
func decodeDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return NormalizeDocument(raw)
}
