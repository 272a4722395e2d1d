package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		name        string
		timestamps  []int64
		columns     []Column
		wantErr     bool
		errContains string
	}{
		{
			name:       "single column",
			timestamps: []int64{1000, 2000, 3000},
			columns:    []Column{{Name: "temp", Values: []float64{1, 2, 3}}},
		},
		{
			name:       "multiple columns",
			timestamps: []int64{1000, 2000},
			columns: []Column{
				{Name: "temp", Values: []float64{1, 2}},
				{Name: "pressure", Values: []float64{3, 4}},
			},
		},
		{
			name:       "empty axis is allowed",
			timestamps: []int64{},
			columns:    []Column{{Name: "temp", Values: []float64{}}},
		},
		{
			name:        "nil axis rejected",
			timestamps:  nil,
			wantErr:     true,
			errContains: "no timestamp column",
		},
		{
			name:        "length mismatch rejected",
			timestamps:  []int64{1000, 2000},
			columns:     []Column{{Name: "temp", Values: []float64{1}}},
			wantErr:     true,
			errContains: `column "temp"`,
		},
		{
			name:       "duplicate column rejected",
			timestamps: []int64{1000},
			columns: []Column{
				{Name: "temp", Values: []float64{1}},
				{Name: "temp", Values: []float64{2}},
			},
			wantErr:     true,
			errContains: "duplicate column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable(tt.timestamps, tt.columns...)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.timestamps), tbl.Len())
			for _, c := range tt.columns {
				vals, err := tbl.Values(c.Name)
				require.NoError(t, err)
				assert.Equal(t, c.Values, vals)
			}
		})
	}
}

func TestTableCopiesOut(t *testing.T) {
	timestamps := []int64{1000, 2000}
	tbl, err := NewTable(timestamps, Column{Name: "x", Values: []float64{1, 2}})
	require.NoError(t, err)

	// Mutating the input or any returned slice must not affect the table.
	timestamps[0] = 99
	got := tbl.Timestamps()
	got[1] = 99
	vals, err := tbl.Values("x")
	require.NoError(t, err)
	vals[0] = 99

	assert.Equal(t, []int64{1000, 2000}, tbl.Timestamps())
	fresh, err := tbl.Values("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, fresh)
}

func TestAlignedWith(t *testing.T) {
	a, err := NewTable([]int64{1, 2, 3}, Column{Name: "x", Values: []float64{0, 0, 0}})
	require.NoError(t, err)
	b, err := NewTable([]int64{1, 2, 3}, Column{Name: "y", Values: []float64{0, 0, 0}})
	require.NoError(t, err)
	c, err := NewTable([]int64{1, 2, 4}, Column{Name: "y", Values: []float64{0, 0, 0}})
	require.NoError(t, err)
	d, err := NewTable([]int64{1, 2}, Column{Name: "y", Values: []float64{0, 0}})
	require.NoError(t, err)

	assert.True(t, a.AlignedWith(b))
	assert.False(t, a.AlignedWith(c))
	assert.False(t, a.AlignedWith(d))
}

func TestSorted(t *testing.T) {
	asc, err := NewTable([]int64{1, 2, 3})
	require.NoError(t, err)
	dup, err := NewTable([]int64{1, 2, 2})
	require.NoError(t, err)
	desc, err := NewTable([]int64{3, 2, 1})
	require.NoError(t, err)

	assert.True(t, asc.Sorted())
	assert.False(t, dup.Sorted())
	assert.False(t, desc.Sorted())
}

func TestUnknownColumn(t *testing.T) {
	tbl, err := NewTable([]int64{1}, Column{Name: "x", Values: []float64{0}})
	require.NoError(t, err)

	_, err = tbl.Values("y")
	assert.Error(t, err)
}
