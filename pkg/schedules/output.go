// Package schedules converts tabular prediction results to and from the
// schedule output wire format.
//
// The wire shape is a single "timeSeries" object mapping each output alias
// to its data points, every point a [timestamp, value] pair:
//
//	{"timeSeries": {"prediction": [[1500000000000, 42.5], ...]}}
//
// Malformed wire input yields a validation error identifying the offending
// alias and point. Misusing the API itself, an alias supplied twice or a
// request for an alias that was never written, is a usage error and carries
// a sentinel instead.
package schedules

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/3leaps/gotide/pkg/dataspec"
	"github.com/3leaps/gotide/pkg/series"
)

var (
	// ErrDuplicateAlias means the same output alias was supplied by more
	// than one table.
	ErrDuplicateAlias = errors.New("duplicate output alias")

	// ErrUnknownAlias means a requested alias holds no data points.
	ErrUnknownAlias = errors.New("unknown output alias")

	// ErrMisalignedAxes means the requested aliases do not share an
	// identical timestamp axis and cannot be merged into one table.
	ErrMisalignedAxes = errors.New("timestamp axes differ")
)

// ScheduleOutput holds prediction results keyed by output alias, each alias
// carrying its own timestamp axis and values.
type ScheduleOutput struct {
	timestamps map[string][]int64
	values     map[string][]float64
}

// FromTables collects the value columns of the given tables into a
// ScheduleOutput. Every column name becomes an output alias; the same alias
// appearing in two tables is a usage error.
func FromTables(tables ...*series.Table) (*ScheduleOutput, error) {
	out := &ScheduleOutput{
		timestamps: map[string][]int64{},
		values:     map[string][]float64{},
	}
	for _, table := range tables {
		if table == nil {
			return nil, errors.New("nil table")
		}
		axis := table.Timestamps()
		for _, name := range table.ColumnNames() {
			if _, exists := out.values[name]; exists {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateAlias, name)
			}
			values, err := table.Values(name)
			if err != nil {
				return nil, err
			}
			out.timestamps[name] = axis
			out.values[name] = values
		}
	}
	return out, nil
}

// ToOutput is shorthand for FromTables followed by Wire.
func ToOutput(tables ...*series.Table) (map[string]any, error) {
	out, err := FromTables(tables...)
	if err != nil {
		return nil, err
	}
	return out.Wire(), nil
}

// Wire renders the output in the wire map shape.
func (o *ScheduleOutput) Wire() map[string]any {
	entries := make(map[string]any, len(o.values))
	for alias, values := range o.values {
		axis := o.timestamps[alias]
		points := make([]any, len(values))
		for i, v := range values {
			points[i] = []any{axis[i], v}
		}
		entries[alias] = points
	}
	return map[string]any{"timeSeries": entries}
}

// ToJSON renders the wire map as canonical JSON.
func (o *ScheduleOutput) ToJSON() (string, error) {
	data, err := json.MarshalIndent(o.Wire(), "", "    ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Aliases returns the output aliases, sorted.
func (o *ScheduleOutput) Aliases() []string {
	aliases := make([]string, 0, len(o.values))
	for alias := range o.values {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Points returns the timestamp axis and values for one alias.
func (o *ScheduleOutput) Points(alias string) ([]int64, []float64, error) {
	values, ok := o.values[alias]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}
	axis := append([]int64(nil), o.timestamps[alias]...)
	return axis, append([]float64(nil), values...), nil
}

// Table merges the requested aliases into one table over a shared timestamp
// axis. With no aliases given, every alias is merged. All requested aliases
// must carry an identical axis: same length, same values, same order.
func (o *ScheduleOutput) Table(aliases ...string) (*series.Table, error) {
	if len(aliases) == 0 {
		aliases = o.Aliases()
	}

	var axis []int64
	columns := make([]series.Column, 0, len(aliases))
	for _, alias := range aliases {
		values, ok := o.values[alias]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
		}
		if axis == nil {
			axis = o.timestamps[alias]
		} else if !sameAxis(axis, o.timestamps[alias]) {
			return nil, fmt.Errorf("%w: %q does not match %q", ErrMisalignedAxes, alias, aliases[0])
		}
		columns = append(columns, series.Column{Name: alias, Values: values})
	}
	return series.NewTable(axis, columns...)
}

func sameAxis(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Parse validates a wire map and returns its in-memory form. Unknown
// top-level fields and malformed points are validation errors naming the
// offending alias and point index. A missing "timeSeries" key parses as an
// empty output.
func Parse(data map[string]any) (*ScheduleOutput, error) {
	tree := dataspec.NewErrorTree()

	var entries map[string]any
	for key, raw := range data {
		if key != "timeSeries" {
			tree.Field(key).Add("Unknown field.")
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			tree.Field(key).Add("Not a valid mapping type.")
			continue
		}
		entries = m
	}

	out := &ScheduleOutput{
		timestamps: map[string][]int64{},
		values:     map[string][]float64{},
	}
	node := tree.Field("timeSeries")
	for alias, raw := range entries {
		points, ok := raw.([]any)
		if !ok {
			node.Field(alias).Add("Not a valid list of data points.")
			continue
		}
		axis := make([]int64, 0, len(points))
		values := make([]float64, 0, len(points))
		for i, point := range points {
			ts, v, ok := parsePoint(point)
			if !ok {
				node.Field(alias).Addf("Point %d is not a [timestamp, value] pair of numbers.", i)
				continue
			}
			axis = append(axis, ts)
			values = append(values, v)
		}
		out.timestamps[alias] = axis
		out.values[alias] = values
	}

	if err := tree.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseJSON parses the textual wire form.
func ParseJSON(text string) (*ScheduleOutput, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON in schedule output: %w", err)
	}
	return Parse(m)
}

// parsePoint accepts a 2-element [timestamp, value] pair. The timestamp must
// be integral; the value any number.
func parsePoint(point any) (int64, float64, bool) {
	pair, ok := point.([]any)
	if !ok || len(pair) != 2 {
		return 0, 0, false
	}
	ts, ok := asInt(pair[0])
	if !ok {
		return 0, 0, false
	}
	v, ok := asNumber(pair[1])
	if !ok {
		return 0, 0, false
	}
	return ts, v, true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
