package dataspec

import "sort"

// Aggregate names a server-side aggregation function applied to a time
// series before it is fetched. Only full function names are valid; the
// shorthand abbreviations some clients accept ("avg", "cv", "step", ...) are
// rejected so that a spec means the same thing everywhere it travels.
type Aggregate string

// The supported aggregation functions.
const (
	AggregateAverage            Aggregate = "average"
	AggregateCount              Aggregate = "count"
	AggregateContinuousVariance Aggregate = "continuousvariance"
	AggregateDiscreteVariance   Aggregate = "discretevariance"
	AggregateInterpolation      Aggregate = "interpolation"
	AggregateMax                Aggregate = "max"
	AggregateMin                Aggregate = "min"
	AggregateStepInterpolation  Aggregate = "stepinterpolation"
	AggregateSum                Aggregate = "sum"
	AggregateTotalVariation     Aggregate = "totalvariation"
)

var validAggregates = map[Aggregate]struct{}{
	AggregateAverage:            {},
	AggregateCount:              {},
	AggregateContinuousVariance: {},
	AggregateDiscreteVariance:   {},
	AggregateInterpolation:      {},
	AggregateMax:                {},
	AggregateMin:                {},
	AggregateStepInterpolation:  {},
	AggregateSum:                {},
	AggregateTotalVariation:     {},
}

// Valid reports whether a is one of the supported full function names.
func (a Aggregate) Valid() bool {
	_, ok := validAggregates[a]
	return ok
}

// String returns the wire name of the aggregate.
func (a Aggregate) String() string {
	return string(a)
}

// Aggregates returns the supported full function names, sorted.
func Aggregates() []string {
	names := make([]string, 0, len(validAggregates))
	for a := range validAggregates {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}
