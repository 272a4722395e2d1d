package dataspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTimeSeriesSpec() TimeSeriesSpec {
	return TimeSeriesSpec{
		ID:          123,
		Start:       1_500_000_000_000,
		End:         1_500_003_600_000,
		Aggregate:   AggregateAverage,
		Granularity: "1h",
	}
}

func TestTimeSeriesSpecValidation(t *testing.T) {
	tests := []struct {
		name      string
		spec      TimeSeriesSpec
		wantErr   bool
		errField  string
		errNeedle string
	}{
		{
			name: "raw fetch",
			spec: TimeSeriesSpec{ID: 1, Start: 0, End: 100},
		},
		{
			name: "raw fetch with outside points",
			spec: TimeSeriesSpec{ID: 1, Start: 0, End: 100, IncludeOutsidePoints: true},
		},
		{
			name: "aggregated fetch",
			spec: validTimeSeriesSpec(),
		},
		{
			name:      "aggregate without granularity",
			spec:      TimeSeriesSpec{ID: 1, Start: 0, End: 100, Aggregate: AggregateMax},
			wantErr:   true,
			errField:  "granularity",
			errNeedle: "must be specified for aggregates",
		},
		{
			name:      "granularity without aggregate",
			spec:      TimeSeriesSpec{ID: 1, Start: 0, End: 100, Granularity: "1h"},
			wantErr:   true,
			errField:  "granularity",
			errNeedle: "can only be specified for aggregates",
		},
		{
			name: "aggregate with outside points",
			spec: TimeSeriesSpec{
				ID: 1, Start: 0, End: 100,
				Aggregate: AggregateMin, Granularity: "1h", IncludeOutsidePoints: true,
			},
			wantErr:   true,
			errField:  "includeOutsidePoints",
			errNeedle: "Can't include outside points",
		},
		{
			name:      "shorthand aggregate rejected",
			spec:      TimeSeriesSpec{ID: 1, Start: 0, End: 100, Aggregate: "avg", Granularity: "1h"},
			wantErr:   true,
			errField:  "aggregate",
			errNeedle: "Invalid aggregate function",
		},
		{
			name:      "bad granularity format",
			spec:      TimeSeriesSpec{ID: 1, Start: 0, End: 100, Aggregate: AggregateSum, Granularity: "3x"},
			wantErr:   true,
			errField:  "granularity",
			errNeedle: "Invalid granularity format",
		},
		{
			name:      "week granularity rejected",
			spec:      TimeSeriesSpec{ID: 1, Start: 0, End: 100, Aggregate: AggregateSum, Granularity: "1w"},
			wantErr:   true,
			errField:  "granularity",
			errNeedle: "Invalid granularity format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.True(t, IsValidation(err))

			messages, ok := verr.Messages().(map[string]any)
			require.True(t, ok)
			leaf, ok := messages[tt.errField].([]string)
			require.True(t, ok, "expected error under field %q, got %v", tt.errField, messages)
			require.Len(t, leaf, 1)
			assert.Contains(t, leaf[0], tt.errNeedle)
		})
	}
}

func TestTimeSeriesSpecDumpOmitsEmptyOptionals(t *testing.T) {
	spec := TimeSeriesSpec{ID: 7, Start: 10, End: 20}
	m, err := spec.Dump()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(7), "start": int64(10), "end": int64(20)}, m)
}

func TestTimeSeriesSpecRoundTrip(t *testing.T) {
	spec := validTimeSeriesSpec()

	m, err := spec.Dump()
	require.NoError(t, err)
	loaded, err := LoadTimeSeriesSpec(m)
	require.NoError(t, err)
	assert.True(t, spec.Equal(loaded))

	text, err := spec.ToJSON()
	require.NoError(t, err)
	fromText, err := TimeSeriesSpecFromJSON(text)
	require.NoError(t, err)
	assert.True(t, spec.Equal(fromText))
}

func TestLoadTimeSeriesSpecUnknownField(t *testing.T) {
	_, err := LoadTimeSeriesSpec(map[string]any{
		"id": 1, "start": 0, "end": 100, "granular": "1h",
	})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	messages := verr.Messages().(map[string]any)
	assert.Equal(t, []string{"Unknown field."}, messages["granular"])
}

func TestLoadTimeSeriesSpecMissingRequired(t *testing.T) {
	_, err := LoadTimeSeriesSpec(map[string]any{"id": 1})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	messages := verr.Messages().(map[string]any)
	assert.Equal(t, []string{"Missing data for required field."}, messages["start"])
	assert.Equal(t, []string{"Missing data for required field."}, messages["end"])
}

func TestLoadTimeSeriesSpecTypeErrors(t *testing.T) {
	_, err := LoadTimeSeriesSpec(map[string]any{
		"id": "one", "start": 0.5, "end": 100,
	})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	messages := verr.Messages().(map[string]any)
	assert.Equal(t, []string{"Not a valid integer."}, messages["id"])
	assert.Equal(t, []string{"Not a valid integer."}, messages["start"])
}

func TestFileSpecRoundTrip(t *testing.T) {
	spec := FileSpec{ID: 99}
	m, err := spec.Dump()
	require.NoError(t, err)
	loaded, err := LoadFileSpec(m)
	require.NoError(t, err)
	assert.True(t, spec.Equal(loaded))
}

func TestNewDataSpec(t *testing.T) {
	spec, err := NewDataSpec(
		map[string]TimeSeriesSpec{"ts_1": {ID: 1, Start: 0, End: 100}},
		map[string]FileSpec{"model_weights": {ID: 2}},
		map[string]any{"run": "baseline", "threshold": 0.75},
	)
	require.NoError(t, err)
	assert.Len(t, spec.TimeSeries, 1)
	assert.Len(t, spec.Files, 1)
}

func TestDataSpecAliasRules(t *testing.T) {
	valid := []string{"a", "ts_1", "a1", "snake_case_alias", strings.Repeat("a", 50)}
	invalid := []string{"F1", "1f", "_x", "x_", "", strings.Repeat("a", 51), "has-dash", "has.dot"}

	for _, alias := range valid {
		assert.True(t, ValidAlias(alias), "alias %q should be accepted", alias)
	}
	for _, alias := range invalid {
		assert.False(t, ValidAlias(alias), "alias %q should be rejected", alias)
	}

	_, err := NewDataSpec(map[string]TimeSeriesSpec{"F1": {ID: 1, Start: 0, End: 1}}, nil, nil)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	messages := verr.Messages().(map[string]any)
	inner := messages["timeSeries"].(map[string]any)
	assert.Contains(t, inner, "F1")
}

func TestDataSpecMetadataValues(t *testing.T) {
	_, err := NewDataSpec(nil, nil, map[string]any{"nested": map[string]any{"x": 1}})
	require.Error(t, err)

	_, err = NewDataSpec(nil, nil, map[string]any{"flag": true})
	require.Error(t, err)

	spec, err := NewDataSpec(nil, nil, map[string]any{"s": "ok", "i": 3, "f": 1.5})
	require.NoError(t, err)
	assert.Len(t, spec.Metadata, 3)
}

func TestDataSpecNestedErrorTree(t *testing.T) {
	_, err := LoadDataSpec(map[string]any{
		"files": map[string]any{"f1": map[string]any{}},
	})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	want := map[string]any{
		"files": map[string]any{
			"f1": map[string]any{
				"id": []string{"Missing data for required field."},
			},
		},
	}
	assert.Equal(t, want, verr.Messages())
}

func TestDataSpecRoundTrip(t *testing.T) {
	spec, err := NewDataSpec(
		map[string]TimeSeriesSpec{
			"temp":     {ID: 1, Start: 0, End: 100, Aggregate: AggregateAverage, Granularity: "10m"},
			"pressure": {ID: 2, Start: 0, End: 100},
		},
		map[string]FileSpec{"calibration": {ID: 3}},
		map[string]any{"site": "north", "version": 2},
	)
	require.NoError(t, err)

	m, err := spec.Dump()
	require.NoError(t, err)
	loaded, err := LoadDataSpec(m)
	require.NoError(t, err)
	assert.True(t, spec.Equal(loaded))

	text, err := spec.ToJSON()
	require.NoError(t, err)
	fromText, err := DataSpecFromJSON(text)
	require.NoError(t, err)
	assert.True(t, spec.Equal(fromText))
}

func TestDataSpecCanonicalText(t *testing.T) {
	spec, err := NewDataSpec(
		map[string]TimeSeriesSpec{"b_series": {ID: 2, Start: 0, End: 1}, "a_series": {ID: 1, Start: 0, End: 1}},
		nil, nil,
	)
	require.NoError(t, err)

	first, err := spec.ToJSON()
	require.NoError(t, err)
	second, err := spec.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Keys are emitted in sorted order.
	assert.Less(t, strings.Index(first, "a_series"), strings.Index(first, "b_series"))
}

func TestDataSpecCopyIndependence(t *testing.T) {
	spec, err := NewDataSpec(
		map[string]TimeSeriesSpec{"x": {ID: 1, Start: 0, End: 100}},
		nil,
		map[string]any{"k": "v"},
	)
	require.NoError(t, err)

	cp, err := spec.Copy()
	require.NoError(t, err)
	require.True(t, spec.Equal(cp))

	cp.TimeSeries["y"] = TimeSeriesSpec{ID: 9, Start: 0, End: 1}
	cp.Metadata["k"] = "mutated"

	assert.Len(t, spec.TimeSeries, 1)
	assert.Equal(t, "v", spec.Metadata["k"])
	assert.False(t, spec.Equal(cp))
}

func TestDataSpecEmptyMapsEqualNil(t *testing.T) {
	a := &DataSpec{}
	b := &DataSpec{TimeSeries: map[string]TimeSeriesSpec{}, Files: map[string]FileSpec{}}
	assert.True(t, a.Equal(b))
}
