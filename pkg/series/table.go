// Package series provides the tabular form of time-series results.
//
// A Table holds one shared timestamp axis plus one or more named value
// columns. Tables are what the fetch layer returns for each aliased series
// and what the schedules codec converts to and from the wire output format.
package series

import (
	"fmt"
	"sort"
)

// Table is a set of named float64 columns over a shared millisecond
// timestamp axis. Column order is preserved from construction.
type Table struct {
	timestamps []int64
	names      []string
	columns    map[string][]float64
}

// Column is a named value column used when constructing a Table.
type Column struct {
	Name   string
	Values []float64
}

// NewTable builds a table from a timestamp axis and columns.
//
// Every column must have exactly one value per timestamp. Column names must
// be unique. A nil timestamp axis is rejected - a table without a timestamp
// column is not a valid result.
func NewTable(timestamps []int64, columns ...Column) (*Table, error) {
	if timestamps == nil {
		return nil, fmt.Errorf("table has no timestamp column")
	}
	t := &Table{
		timestamps: append([]int64(nil), timestamps...),
		columns:    make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		if _, ok := t.columns[c.Name]; ok {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if len(c.Values) != len(timestamps) {
			return nil, fmt.Errorf("column %q has %d values but table has %d timestamps",
				c.Name, len(c.Values), len(timestamps))
		}
		t.names = append(t.names, c.Name)
		t.columns[c.Name] = append([]float64(nil), c.Values...)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.timestamps)
}

// Timestamps returns a copy of the timestamp axis.
func (t *Table) Timestamps() []int64 {
	return append([]int64(nil), t.timestamps...)
}

// ColumnNames returns the column names in construction order.
func (t *Table) ColumnNames() []string {
	return append([]string(nil), t.names...)
}

// Values returns a copy of the named column, or an error if the column does
// not exist.
func (t *Table) Values(name string) ([]float64, error) {
	vals, ok := t.columns[name]
	if !ok {
		return nil, fmt.Errorf("no column %q in table", name)
	}
	return append([]float64(nil), vals...), nil
}

// AlignedWith reports whether the other table has an identical timestamp
// axis: same length, same values, same order.
func (t *Table) AlignedWith(other *Table) bool {
	if len(t.timestamps) != len(other.timestamps) {
		return false
	}
	for i, ts := range t.timestamps {
		if other.timestamps[i] != ts {
			return false
		}
	}
	return true
}

// Sorted reports whether the timestamp axis is in strictly ascending order.
func (t *Table) Sorted() bool {
	return sort.SliceIsSorted(t.timestamps, func(i, j int) bool {
		return t.timestamps[i] < t.timestamps[j]
	}) && !hasAdjacentDuplicates(t.timestamps)
}

func hasAdjacentDuplicates(ts []int64) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i] == ts[i-1] {
			return true
		}
	}
	return false
}
