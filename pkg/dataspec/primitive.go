package dataspec

import (
	"encoding/json"
	"math"
)

// Messages reused across field decoders. The exact strings are part of the
// wire error contract.
const (
	msgMissingRequired = "Missing data for required field."
	msgUnknownField    = "Unknown field."
	msgNotInteger      = "Not a valid integer."
	msgNotBoolean      = "Not a valid boolean."
	msgNotString       = "Not a valid string."
	msgNotMapping      = "Not a valid mapping type."
)

// fieldReader decodes one primitive map into typed fields, accumulating
// errors in a tree node as it goes. Fields not consumed by the time finish
// is called are reported as unknown - schemas are strict.
type fieldReader struct {
	data map[string]any
	tree *ErrorTree
	seen map[string]struct{}
}

func newFieldReader(data map[string]any, tree *ErrorTree) *fieldReader {
	return &fieldReader{
		data: data,
		tree: tree,
		seen: make(map[string]struct{}, len(data)),
	}
}

func (r *fieldReader) mark(name string) (any, bool) {
	r.seen[name] = struct{}{}
	v, ok := r.data[name]
	return v, ok
}

// requireInt reads a required integer field.
func (r *fieldReader) requireInt(name string) int64 {
	v, ok := r.mark(name)
	if !ok {
		r.tree.Field(name).Add(msgMissingRequired)
		return 0
	}
	n, ok := coerceInt(v)
	if !ok {
		r.tree.Field(name).Add(msgNotInteger)
		return 0
	}
	return n
}

// optionalInt reads an optional integer field. The second result reports
// whether the field was present and valid.
func (r *fieldReader) optionalInt(name string) (int64, bool) {
	v, ok := r.mark(name)
	if !ok {
		return 0, false
	}
	n, ok := coerceInt(v)
	if !ok {
		r.tree.Field(name).Add(msgNotInteger)
		return 0, false
	}
	return n, true
}

// optionalString reads an optional string field.
func (r *fieldReader) optionalString(name string) (string, bool) {
	v, ok := r.mark(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		r.tree.Field(name).Add(msgNotString)
		return "", false
	}
	return s, true
}

// optionalBool reads an optional boolean field.
func (r *fieldReader) optionalBool(name string) (bool, bool) {
	v, ok := r.mark(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	if !ok {
		r.tree.Field(name).Add(msgNotBoolean)
		return false, false
	}
	return b, true
}

// optionalMap reads an optional map-valued field.
func (r *fieldReader) optionalMap(name string) (map[string]any, bool) {
	v, ok := r.mark(name)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.tree.Field(name).Add(msgNotMapping)
		return nil, false
	}
	return m, true
}

// requireMap reads a required map-valued field.
func (r *fieldReader) requireMap(name string) (map[string]any, bool) {
	v, ok := r.mark(name)
	if !ok {
		r.tree.Field(name).Add(msgMissingRequired)
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.tree.Field(name).Add(msgNotMapping)
		return nil, false
	}
	return m, true
}

// finish flags every field that was present but never consumed.
func (r *fieldReader) finish() {
	for name := range r.data {
		if _, ok := r.seen[name]; !ok {
			r.tree.Field(name).Add(msgUnknownField)
		}
	}
}

// coerceInt accepts the integer encodings that survive a trip through
// encoding/json or yaml: Go ints, and floats with an integral value.
func coerceInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// coerceNumber accepts any numeric scalar, returning it as float64.
func coerceNumber(v any) (float64, bool) {
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
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// marshalCanonical renders a primitive map as the canonical textual form:
// deterministically key-ordered, four-space indented JSON.
func marshalCanonical(v map[string]any) (string, error) {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
