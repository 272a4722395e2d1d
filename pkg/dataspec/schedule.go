package dataspec

import (
	"github.com/3leaps/gotide/pkg/window"
)

// SlackUnbounded is the slack value meaning "no staleness bound at all".
const SlackUnbounded int64 = -1

// ScheduleInputTimeSeriesSpec is a TimeSeriesSpec without a time range: the
// prediction window supplies start and end at expansion time, so the two
// fields are rejected if present on the wire.
type ScheduleInputTimeSeriesSpec struct {
	ID                   int64
	Aggregate            Aggregate
	Granularity          string
	IncludeOutsidePoints bool
}

func (s *ScheduleInputTimeSeriesSpec) dump(tree *ErrorTree) map[string]any {
	m := map[string]any{"id": s.ID}
	dumpSeriesFields(m, tree, s.Aggregate, s.Granularity, s.IncludeOutsidePoints)
	return m
}

// Dump serializes the spec, validating every invariant.
func (s *ScheduleInputTimeSeriesSpec) Dump() (map[string]any, error) {
	tree := NewErrorTree()
	m := s.dump(tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every invariant without producing output.
func (s *ScheduleInputTimeSeriesSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *ScheduleInputTimeSeriesSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy.
func (s *ScheduleInputTimeSeriesSpec) Copy() (*ScheduleInputTimeSeriesSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadScheduleInputTimeSeriesSpec(m)
}

// Equal reports value equality.
func (s *ScheduleInputTimeSeriesSpec) Equal(other *ScheduleInputTimeSeriesSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return specsEqual(s, other)
}

func loadScheduleInputTimeSeriesSpec(data map[string]any, tree *ErrorTree) ScheduleInputTimeSeriesSpec {
	r := newFieldReader(data, tree)
	spec := ScheduleInputTimeSeriesSpec{ID: r.requireInt("id")}
	loadSeriesFields(r, &spec.Aggregate, &spec.Granularity, &spec.IncludeOutsidePoints)
	r.finish()
	dumpSeriesFields(map[string]any{}, tree, spec.Aggregate, spec.Granularity, spec.IncludeOutsidePoints)
	return spec
}

// LoadScheduleInputTimeSeriesSpec constructs a spec from a primitive map.
// A "start" or "end" field is rejected along with any other unknown field.
func LoadScheduleInputTimeSeriesSpec(data map[string]any) (*ScheduleInputTimeSeriesSpec, error) {
	tree := NewErrorTree()
	spec := loadScheduleInputTimeSeriesSpec(data, tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ScheduleInputSpec maps aliases to the schedule's input series.
type ScheduleInputSpec struct {
	TimeSeries map[string]ScheduleInputTimeSeriesSpec
}

// HasAggregates reports whether any input entry declares an aggregate.
func (s *ScheduleInputSpec) HasAggregates() bool {
	for _, entry := range s.TimeSeries {
		if entry.Aggregate != "" {
			return true
		}
	}
	return false
}

// LargestGranularityMS returns the largest full granularity in milliseconds
// among aggregated entries, or 0 when there are none.
func (s *ScheduleInputSpec) LargestGranularityMS() int64 {
	largest, _ := s.largestGranularity()
	return largest
}

// LargestGranularityUnitMS returns the unit magnitude of the largest
// granularity ("3h" contributes one hour), or 0 when there are none.
func (s *ScheduleInputSpec) LargestGranularityUnitMS() int64 {
	_, unit := s.largestGranularity()
	return unit
}

// largestGranularity scans aggregated entries for the largest granularity
// and that granularity's unit magnitude. Entries tying on the full
// granularity in different units ("3h" vs "180m") resolve to the larger
// unit, so the result never depends on map iteration order and the
// alignment check keeps the coarser bucket boundary. Unparseable
// granularities are skipped here; validation reports them separately.
func (s *ScheduleInputSpec) largestGranularity() (largest, unit int64) {
	for _, entry := range s.TimeSeries {
		if entry.Aggregate == "" || entry.Granularity == "" {
			continue
		}
		ms, err := GranularityToMS(entry.Granularity)
		if err != nil {
			continue
		}
		entryUnit, _ := GranularityUnitToMS(entry.Granularity)
		if ms > largest || (ms == largest && entryUnit > unit) {
			largest = ms
			unit = entryUnit
		}
	}
	return largest, unit
}

func (s *ScheduleInputSpec) dump(tree *ErrorTree) map[string]any {
	m := map[string]any{}
	if len(s.TimeSeries) > 0 {
		node := tree.Field("timeSeries")
		entries := make(map[string]any, len(s.TimeSeries))
		for alias, entry := range s.TimeSeries {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			entries[alias] = entry.dump(node.Field(alias))
		}
		m["timeSeries"] = entries
	}
	return m
}

// Dump serializes the spec.
func (s *ScheduleInputSpec) Dump() (map[string]any, error) {
	tree := NewErrorTree()
	m := s.dump(tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every invariant without producing output.
func (s *ScheduleInputSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *ScheduleInputSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy.
func (s *ScheduleInputSpec) Copy() (*ScheduleInputSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadScheduleInputSpec(m)
}

// Equal reports value equality.
func (s *ScheduleInputSpec) Equal(other *ScheduleInputSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return specsEqual(s, other)
}

func loadScheduleInputSpec(data map[string]any, tree *ErrorTree) ScheduleInputSpec {
	r := newFieldReader(data, tree)
	spec := ScheduleInputSpec{TimeSeries: map[string]ScheduleInputTimeSeriesSpec{}}
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
			spec.TimeSeries[alias] = loadScheduleInputTimeSeriesSpec(entry, node.Field(alias))
		}
	}
	r.finish()
	return spec
}

// LoadScheduleInputSpec constructs a ScheduleInputSpec from a primitive map.
func LoadScheduleInputSpec(data map[string]any) (*ScheduleInputSpec, error) {
	tree := NewErrorTree()
	spec := loadScheduleInputSpec(data, tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ScheduleOutputTimeSeriesSpec declares where one output alias is written
// back in time: the series ID and a signed millisecond offset relative to
// the window's end.
type ScheduleOutputTimeSeriesSpec struct {
	ID     int64
	Offset int64
}

// Dump serializes the spec. Offset is always emitted; zero is a meaningful
// displacement, not an absent optional.
func (s *ScheduleOutputTimeSeriesSpec) Dump() (map[string]any, error) {
	return map[string]any{"id": s.ID, "offset": s.Offset}, nil
}

// Validate checks every invariant without producing output.
func (s *ScheduleOutputTimeSeriesSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *ScheduleOutputTimeSeriesSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy.
func (s *ScheduleOutputTimeSeriesSpec) Copy() (*ScheduleOutputTimeSeriesSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadScheduleOutputTimeSeriesSpec(m)
}

// Equal reports value equality.
func (s *ScheduleOutputTimeSeriesSpec) Equal(other *ScheduleOutputTimeSeriesSpec) bool {
	return s != nil && other != nil && *s == *other
}

func loadScheduleOutputTimeSeriesSpec(data map[string]any, tree *ErrorTree) ScheduleOutputTimeSeriesSpec {
	r := newFieldReader(data, tree)
	spec := ScheduleOutputTimeSeriesSpec{ID: r.requireInt("id")}
	if offset, ok := r.optionalInt("offset"); ok {
		spec.Offset = offset
	}
	r.finish()
	return spec
}

// LoadScheduleOutputTimeSeriesSpec constructs a spec from a primitive map.
// Offset defaults to 0 when absent.
func LoadScheduleOutputTimeSeriesSpec(data map[string]any) (*ScheduleOutputTimeSeriesSpec, error) {
	tree := NewErrorTree()
	spec := loadScheduleOutputTimeSeriesSpec(data, tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ScheduleOutputSpec maps aliases to the schedule's output series.
type ScheduleOutputSpec struct {
	TimeSeries map[string]ScheduleOutputTimeSeriesSpec
}

func (s *ScheduleOutputSpec) dump(tree *ErrorTree) map[string]any {
	m := map[string]any{}
	if len(s.TimeSeries) > 0 {
		node := tree.Field("timeSeries")
		entries := make(map[string]any, len(s.TimeSeries))
		for alias, entry := range s.TimeSeries {
			if !ValidAlias(alias) {
				node.Field(alias).Add(invalidAliasMessage)
				continue
			}
			entries[alias] = map[string]any{"id": entry.ID, "offset": entry.Offset}
		}
		m["timeSeries"] = entries
	}
	return m
}

// Dump serializes the spec.
func (s *ScheduleOutputSpec) Dump() (map[string]any, error) {
	tree := NewErrorTree()
	m := s.dump(tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks every invariant without producing output.
func (s *ScheduleOutputSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *ScheduleOutputSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy.
func (s *ScheduleOutputSpec) Copy() (*ScheduleOutputSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadScheduleOutputSpec(m)
}

// Equal reports value equality.
func (s *ScheduleOutputSpec) Equal(other *ScheduleOutputSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return specsEqual(s, other)
}

func loadScheduleOutputSpec(data map[string]any, tree *ErrorTree) ScheduleOutputSpec {
	r := newFieldReader(data, tree)
	spec := ScheduleOutputSpec{TimeSeries: map[string]ScheduleOutputTimeSeriesSpec{}}
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
			spec.TimeSeries[alias] = loadScheduleOutputTimeSeriesSpec(entry, node.Field(alias))
		}
	}
	r.finish()
	return spec
}

// LoadScheduleOutputSpec constructs a ScheduleOutputSpec from a primitive map.
func LoadScheduleOutputSpec(data map[string]any) (*ScheduleOutputSpec, error) {
	tree := NewErrorTree()
	spec := loadScheduleOutputSpec(data, tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ScheduleDataSpec is the full declaration of a recurring prediction
// workload: aliased inputs, aliased outputs, and the timing parameters that
// define the window grid.
//
// Start is the anchor: the phase reference every window end is aligned to.
// Stride is the spacing between consecutive window ends, WindowSize the
// window length, both in milliseconds. Slack is the tolerated delay for
// late-arriving input data before a window counts as stale; it is carried
// as policy and not enforced by the windowing itself.
type ScheduleDataSpec struct {
	Input      ScheduleInputSpec
	Output     ScheduleOutputSpec
	Stride     int64
	WindowSize int64
	Start      int64
	Slack      int64
}

// ScheduleOption configures NewScheduleDataSpec.
type ScheduleOption func(*scheduleOptions)

type scheduleOptions struct {
	start    int64
	startSet bool
	slack    int64
	clock    Clock
}

// WithStart pins the schedule anchor to an explicit millisecond timestamp.
// Without it, the anchor defaults to the clock's current time, snapped
// forward to the next granularity-unit boundary when aggregated inputs are
// present.
func WithStart(ms int64) ScheduleOption {
	return func(o *scheduleOptions) {
		o.start = ms
		o.startSet = true
	}
}

// WithSlack sets the slack tolerance. Use SlackUnbounded for no bound.
func WithSlack(ms int64) ScheduleOption {
	return func(o *scheduleOptions) {
		o.slack = ms
	}
}

// WithClock overrides the clock used to resolve a defaulted anchor.
func WithClock(c Clock) ScheduleOption {
	return func(o *scheduleOptions) {
		o.clock = c
	}
}

// NewScheduleDataSpec validates and returns a ScheduleDataSpec.
//
// When no WithStart option is given the anchor is taken from the clock. A
// caller cannot control "now" precisely, so rather than rejecting a
// misaligned default the anchor is snapped forward onto the granularity
// grid; an explicitly provided Start is validated strictly instead.
func NewScheduleDataSpec(input ScheduleInputSpec, output ScheduleOutputSpec, stride, windowSize int64, opts ...ScheduleOption) (*ScheduleDataSpec, error) {
	options := scheduleOptions{clock: SystemClock()}
	for _, opt := range opts {
		opt(&options)
	}

	start := options.start
	if !options.startSet {
		start = options.clock.NowMS()
		if unit := input.LargestGranularityUnitMS(); unit > 0 && start%unit != 0 {
			start += unit - start%unit
		}
	}

	spec := &ScheduleDataSpec{
		Input:      input,
		Output:     output,
		Stride:     stride,
		WindowSize: windowSize,
		Start:      start,
		Slack:      options.slack,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Dump serializes the spec, running the full cross-field validation
// including granularity alignment. Slack is omitted when 0.
func (s *ScheduleDataSpec) Dump() (map[string]any, error) {
	tree := NewErrorTree()
	m := map[string]any{
		"input":      s.Input.dump(tree.Field("input")),
		"output":     s.Output.dump(tree.Field("output")),
		"stride":     s.Stride,
		"windowSize": s.WindowSize,
		"start":      s.Start,
	}
	if s.Slack != 0 {
		m["slack"] = s.Slack
	}
	s.validateTiming(tree)
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// validateTiming checks the numeric ranges and, when aggregated inputs are
// present, the granularity alignment invariants.
func (s *ScheduleDataSpec) validateTiming(tree *ErrorTree) {
	if s.Stride < 1 {
		tree.Field("stride").Add("Must be greater than or equal to 1.")
	}
	if s.WindowSize < 1 {
		tree.Field("windowSize").Add("Must be greater than or equal to 1.")
	}
	if s.Start < 0 {
		tree.Field("start").Add("Must be greater than or equal to 0.")
	}
	if s.Slack < SlackUnbounded {
		tree.Field("slack").Add("Slack must be -1 (unbounded) or a non-negative number of milliseconds.")
	}

	if !s.Input.HasAggregates() {
		return
	}
	unit := s.Input.LargestGranularityUnitMS()
	largest := s.Input.LargestGranularityMS()
	if unit <= 0 {
		// Aggregates present but no parseable granularity; the per-entry
		// validation already reported it.
		return
	}

	// Window boundaries must coincide with aggregation-bucket boundaries
	// for every aggregated series, or the first and last buckets in a
	// window would be fetched truncated.
	if s.Stride%unit != 0 {
		tree.Field("stride").Addf("Stride must be a multiple of the largest granularity unit (%d ms).", unit)
	}
	if s.Start%unit != 0 {
		tree.Field("start").Addf("Start must be a multiple of the largest granularity unit (%d ms).", unit)
	}
	if s.WindowSize%unit != 0 {
		tree.Field("windowSize").Addf("Window size must be a multiple of the largest granularity unit (%d ms).", unit)
	}
	if s.WindowSize < largest {
		tree.Field("windowSize").Addf("Window size must be at least the largest granularity (%d ms).", largest)
	}
}

// Validate checks every invariant without producing output.
func (s *ScheduleDataSpec) Validate() error {
	_, err := s.Dump()
	return err
}

// ToJSON renders the canonical textual form.
func (s *ScheduleDataSpec) ToJSON() (string, error) {
	m, err := s.Dump()
	if err != nil {
		return "", err
	}
	return marshalCanonical(m)
}

// Copy returns an independent value copy via a serialization round trip.
func (s *ScheduleDataSpec) Copy() (*ScheduleDataSpec, error) {
	m, err := s.Dump()
	if err != nil {
		return nil, err
	}
	return LoadScheduleDataSpec(m)
}

// Equal reports value equality.
func (s *ScheduleDataSpec) Equal(other *ScheduleDataSpec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return specsEqual(s, other)
}

// LoadScheduleDataSpec constructs a ScheduleDataSpec from a primitive map.
// input, output, stride, windowSize and start are required; slack defaults
// to 0.
func LoadScheduleDataSpec(data map[string]any) (*ScheduleDataSpec, error) {
	tree := NewErrorTree()
	r := newFieldReader(data, tree)
	spec := &ScheduleDataSpec{}

	if raw, ok := r.requireMap("input"); ok {
		spec.Input = loadScheduleInputSpec(raw, tree.Field("input"))
	}
	if raw, ok := r.requireMap("output"); ok {
		spec.Output = loadScheduleOutputSpec(raw, tree.Field("output"))
	}
	spec.Stride = r.requireInt("stride")
	spec.WindowSize = r.requireInt("windowSize")
	spec.Start = r.requireInt("start")
	if slack, ok := r.optionalInt("slack"); ok {
		spec.Slack = slack
	}
	r.finish()

	if tree.Empty() {
		spec.validateTiming(tree)
	}
	if err := tree.Err(); err != nil {
		return nil, err
	}
	return spec, nil
}

// ScheduleDataSpecFromJSON parses the canonical textual form.
func ScheduleDataSpecFromJSON(text string) (*ScheduleDataSpec, error) {
	m, err := unmarshalObject(text)
	if err != nil {
		return nil, err
	}
	return LoadScheduleDataSpec(m)
}

// GetDataSpecs expands the schedule over [start, end) into one concrete
// DataSpec per prediction window, substituting each window's boundaries into
// every aliased input. The result is ordered by window end.
func (s *ScheduleDataSpec) GetDataSpecs(start, end int64) ([]*DataSpec, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	windows := window.Windows(start, end, s.Stride, s.WindowSize, s.Start)
	specs := make([]*DataSpec, 0, len(windows))
	for _, w := range windows {
		timeSeries := make(map[string]TimeSeriesSpec, len(s.Input.TimeSeries))
		for alias, entry := range s.Input.TimeSeries {
			timeSeries[alias] = TimeSeriesSpec{
				ID:                   entry.ID,
				Start:                w.Start,
				End:                  w.End,
				Aggregate:            entry.Aggregate,
				Granularity:          entry.Granularity,
				IncludeOutsidePoints: entry.IncludeOutsidePoints,
			}
		}
		spec, err := NewDataSpec(timeSeries, nil, nil)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ExecutionTimestamps returns the instants in [start, end) at which the
// schedule fires, i.e. the window ends of GetDataSpecs.
func (s *ScheduleDataSpec) ExecutionTimestamps(start, end int64) ([]int64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return window.ExecutionTimestamps(start, end, s.Stride, s.Start), nil
}
