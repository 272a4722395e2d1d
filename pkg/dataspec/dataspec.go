// Package dataspec provides the typed spec value objects a prediction
// workload uses to declare the time-series and file resources it needs.
//
// A DataSpec maps caller-chosen aliases to concrete resource specs with
// fully resolved time ranges. A ScheduleDataSpec describes a recurring
// workload instead: aliased inputs without time ranges, output destinations,
// and the timing parameters (stride, window size, anchor) that slice the
// timeline into successive prediction windows.
//
// Every spec type satisfies the same contract: eager validation at
// construction or load time, serialization to a primitive map with empty
// optionals omitted, canonical sorted-key JSON text, value copies that are
// independent of the source object, and value equality. Validation failures
// carry a nested field-path to messages tree (see ValidationError); a spec
// that fails validation never escapes to the caller.
//
// Wire field names are camelCase ("windowSize", "includeOutsidePoints");
// the codec in this package owns the mapping to Go field names, and error
// trees are keyed by the wire names.
//
// All types are immutable by convention: treat returned specs as read-only
// values. The package itself is pure and safe for concurrent use.
package dataspec

import "reflect"

// Spec is the contract shared by every spec value object.
type Spec interface {
	// Validate checks every invariant, returning a *ValidationError on
	// violation.
	Validate() error

	// Dump serializes to a primitive map with empty optional fields
	// omitted, re-validating the result.
	Dump() (map[string]any, error)

	// ToJSON renders the canonical textual form: deterministically
	// key-ordered, indented JSON.
	ToJSON() (string, error)
}

// TimeSeriesSpec declares one time series to fetch over a fully resolved
// time range.
//
// A raw fetch leaves Aggregate and Granularity empty. An aggregated fetch
// sets both: the series is bucketed by Granularity and reduced with
// Aggregate. IncludeOutsidePoints is only meaningful for raw fetches.
type TimeSeriesSpec struct {
	// ID is the integer reference of the series in the remote system.
	ID int64

	// Start and End bound the fetch in milliseconds; End is exclusive.
	Start int64
	End   int64

	// Aggregate is the aggregation function, or empty for a raw fetch.
	// Only full function names are accepted.
	Aggregate Aggregate

	// Granularity is the aggregation bucket size ("3h"). Required with
	// Aggregate, forbidden without.
	Granularity string

	// IncludeOutsidePoints requests the first datapoint on each side of
	// the range. Forbidden with Aggregate.
	IncludeOutsidePoints bool
}

// dumpSeriesFields emits the aggregate-related fields shared with schedule
// input entries, checking the aggregate/granularity coupling invariants.
func dumpSeriesFields(m map[string]any, tree *ErrorTree, aggregate Aggregate, granularity string, includeOutside bool) {
	if aggregate != "" {
		if !aggregate.Valid() {
			tree.Field("aggregate").Addf(
				"Invalid aggregate function `%s`. Must be one of the full names: %v.", aggregate, Aggregates())
		} else {
			m["aggregate"] = string(aggregate)
		}
		if granularity == "" {
			tree.Field("granularity").Add("granularity must be specified for aggregates.")
		}
		if includeOutside {
			tree.Field("includeOutsidePoints").Add("Can't include outside points for aggregates.")
		}
	} else {
		if granularity != "" {
			tree.Field("granularity").Add("granularity can only be specified for aggregates.")
		}
		if includeOutside {
			m["includeOutsidePoints"] = true
		}
	}
	if granularity != "" {
		if _, err := GranularityToMS(granularity); err != nil {
			tree.Field("granularity").Add(err.Error())
		} else if aggregate != "" {
			m["granularity"] = granularity
		}
	}
}

func (s *TimeSeriesSpec) dump(tree *ErrorTree) map[string]any {
	m := map[string]any{
		"id":    s.ID,
		"start": s.Start,
		"end":   s.End,
	}
	dumpSeriesFields(m, tree, s.Aggregate, s.Granularity, s.IncludeOutsidePoints)
	return m
}

// Dump serializes the spec, validating every invariant.
func (s *TimeSeriesSpec) Dump() (map[string]any, error) {
	tree := NewErrorTree()
	m := s.dump(tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every invariant without producing output.
func (s *TimeSeriesSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *TimeSeriesSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy via a serialization round trip.
func (s *TimeSeriesSpec) Copy() (*TimeSeriesSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadTimeSeriesSpec(m)
}

// Equal reports value equality with another TimeSeriesSpec.
func (s *TimeSeriesSpec) Equal(other *TimeSeriesSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return specsEqual(s, other)
}

func loadTimeSeriesSpec(data map[string]any, tree *ErrorTree) TimeSeriesSpec {
	r := newFieldReader(data, tree)
	spec := TimeSeriesSpec{
		ID:    r.requireInt("id"),
		Start: r.requireInt("start"),
		End:   r.requireInt("end"),
	}
	loadSeriesFields(r, &spec.Aggregate, &spec.Granularity, &spec.IncludeOutsidePoints)
	r.finish()
	// Re-run the cross-field checks against what was actually present.
	dumpSeriesFields(map[string]any{}, tree, spec.Aggregate, spec.Granularity, spec.IncludeOutsidePoints)
	return spec
}

func loadSeriesFields(r *fieldReader, aggregate *Aggregate, granularity *string, includeOutside *bool) {
	if agg, ok := r.optionalString("aggregate"); ok {
		*aggregate = Aggregate(agg)
	}
	if gran, ok := r.optionalString("granularity"); ok {
		*granularity = gran
	}
	if iop, ok := r.optionalBool("includeOutsidePoints"); ok {
		*includeOutside = iop
	}
}

// LoadTimeSeriesSpec constructs a TimeSeriesSpec from a primitive map,
// rejecting unknown fields and invariant violations.
func LoadTimeSeriesSpec(data map[string]any) (*TimeSeriesSpec, error) {
	tree := NewErrorTree()
	spec := loadTimeSeriesSpec(data, tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// TimeSeriesSpecFromJSON parses the canonical textual form.
func TimeSeriesSpecFromJSON(text string) (*TimeSeriesSpec, error) {
	m, err := unmarshalObject(text)
	if err != nil {
		return nil, err
	}
	return LoadTimeSeriesSpec(m)
}

// FileSpec declares one file resource by integer reference.
type FileSpec struct {
	ID int64
}

// Dump serializes the spec.
func (s *FileSpec) Dump() (map[string]any, error) {
	return map[string]any{"id": s.ID}, nil
}

// Validate checks every invariant without producing output.
func (s *FileSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *FileSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy.
func (s *FileSpec) Copy() (*FileSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadFileSpec(m)
}

// Equal reports value equality with another FileSpec.
func (s *FileSpec) Equal(other *FileSpec) bool {
	return s != nil && other != nil && *s == *other
}

func loadFileSpec(data map[string]any, tree *ErrorTree) FileSpec {
	r := newFieldReader(data, tree)
	spec := FileSpec{ID: r.requireInt("id")}
	r.finish()
	return spec
}

// LoadFileSpec constructs a FileSpec from a primitive map.
func LoadFileSpec(data map[string]any) (*FileSpec, error) {
	tree := NewErrorTree()
	spec := loadFileSpec(data, tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// FileSpecFromJSON parses the canonical textual form.
func FileSpecFromJSON(text string) (*FileSpec, error) {
	m, err := unmarshalObject(text)
	if err != nil {
		return nil, err
	}
	return LoadFileSpec(m)
}

// DataSpec is the concrete contract handed to the fetch layer: aliased time
// series with resolved ranges, aliased files, and optional scalar metadata.
type DataSpec struct {
	TimeSeries map[string]TimeSeriesSpec
	Files      map[string]FileSpec

	// Metadata carries caller-defined scalar annotations. Values must be
	// strings or numbers; nested structures are rejected.
	Metadata map[string]any
}

// NewDataSpec validates and returns a DataSpec. The input maps are copied;
// later mutation of them does not affect the returned spec.
func NewDataSpec(timeSeries map[string]TimeSeriesSpec, files map[string]FileSpec, metadata map[string]any) (*DataSpec, error) {
	spec := &DataSpec{
		TimeSeries: make(map[string]TimeSeriesSpec, len(timeSeries)),
		Files:      make(map[string]FileSpec, len(files)),
		Metadata:   make(map[string]any, len(metadata)),
	}
	for alias, ts := range timeSeries {
		spec.TimeSeries[alias] = ts
	}
	for alias, f := range files {
		spec.Files[alias] = f
	}
	for alias, v := range metadata {
		spec.Metadata[alias] = v
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Dump serializes the spec, validating aliases and every nested entry.
// Empty maps are omitted.
func (s *DataSpec) Dump() (map[string]any, error) {
	tree := NewErrorTree()
	m := map[string]any{}

	if len(s.TimeSeries) > 0 {
		node := tree.Field("timeSeries")
		entries := make(map[string]any, len(s.TimeSeries))
		for alias, ts := range s.TimeSeries {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			entries[alias] = ts.dump(node.Field(alias))
		}
		m["timeSeries"] = entries
	}
	if len(s.Files) > 0 {
		node := tree.Field("files")
		entries := make(map[string]any, len(s.Files))
		for alias, f := range s.Files {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			entries[alias] = map[string]any{"id": f.ID}
		}
		m["files"] = entries
	}
	if len(s.Metadata) > 0 {
		node := tree.Field("metadata")
		entries := make(map[string]any, len(s.Metadata))
		for alias, v := range s.Metadata {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			if !validateMetadataValue(v) {
				node.Field(alias).Add("Metadata values must be strings or numbers.")
				continue
			}
			entries[alias] = normalizeScalar(v)
		}
		m["metadata"] = entries
	}

	if err := tree.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every invariant without producing output.
func (s *DataSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *DataSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy via a serialization round trip.
func (s *DataSpec) Copy() (*DataSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadDataSpec(m)
}

// Equal reports value equality with another DataSpec. Nil and empty maps
// compare equal, matching the dump form.
func (s *DataSpec) Equal(other *DataSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return specsEqual(s, other)
}

// LoadDataSpec constructs a DataSpec from a primitive map.
func LoadDataSpec(data map[string]any) (*DataSpec, error) {
	tree := NewErrorTree()
	r := newFieldReader(data, tree)
	spec := &DataSpec{
		TimeSeries: map[string]TimeSeriesSpec{},
		Files:      map[string]FileSpec{},
		Metadata:   map[string]any{},
	}

	if entries, ok := r.optionalMap("timeSeries"); ok {
		node := tree.Field("timeSeries")
		for alias, raw := range entries {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			entry, ok := raw.(map[string]any)
			if !ok {
				node.Field(alias).Add(msgNotMapping)
				continue
			}
			spec.TimeSeries[alias] = loadTimeSeriesSpec(entry, node.Field(alias))
		}
	}
	if entries, ok := r.optionalMap("files"); ok {
		node := tree.Field("files")
		for alias, raw := range entries {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			entry, ok := raw.(map[string]any)
			if !ok {
				node.Field(alias).Add(msgNotMapping)
				continue
			}
			spec.Files[alias] = loadFileSpec(entry, node.Field(alias))
		}
	}
	if entries, ok := r.optionalMap("metadata"); ok {
		node := tree.Field("metadata")
		for alias, v := range entries {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			if !validateMetadataValue(v) {
				node.Field(alias).Add("Metadata values must be strings or numbers.")
				continue
			}
			spec.Metadata[alias] = normalizeScalar(v)
		}
	}
	r.finish()

	if err := tree.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// DataSpecFromJSON parses the canonical textual form.
func DataSpecFromJSON(text string) (*DataSpec, error) {
	m, err := unmarshalObject(text)
	if err != nil {
		return nil, err
	}
	return LoadDataSpec(m)
}

// normalizeScalar maps numeric metadata values onto the two canonical Go
// types so that a load/dump round trip compares equal: integral numbers
// become int64, everything else float64.
func normalizeScalar(v any) any {
	if s, ok := v.(string); ok {
		return s
	}
	if n, ok := coerceInt(v); ok {
		return n
	}
	if f, ok := coerceNumber(v); ok {
		return f
	}
	return v
}

// specsEqual compares two spec values by their canonical dumps, which
// normalizes nil/empty containers. Invalid specs fall back to a deep
// compare of the raw values.
func specsEqual[T Spec](a, b T) bool {
	da, errA := a.Dump()
	db, errB := b.Dump()
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return reflect.DeepEqual(da, db)
}
