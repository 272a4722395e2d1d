package dataspec

import (
	"fmt"
	"regexp"
	"strconv"
)

// Millisecond magnitudes for granularity units.
const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

var unitMS = map[string]int64{
	"s": msPerSecond,
	"m": msPerMinute,
	"h": msPerHour,
	"d": msPerDay,
}

var granularityPattern = regexp.MustCompile(`^([1-9]\d*)(s|m|h|d)$`)

func granularityFormatError(granularity string) error {
	return fmt.Errorf(
		"Invalid granularity format: `%s`. Must be on format <integer>(s|m|h|d). E.g. '5m', '3h' or '1d'.",
		granularity)
}

// GranularityToMS converts a granularity string to milliseconds.
//
// The format is <positive integer><unit> where unit is one of s, m, h, d.
// Examples: "5m", "3h", "1d".
func GranularityToMS(granularity string) (int64, error) {
	match := granularityPattern.FindStringSubmatch(granularity)
	if match == nil {
		return 0, granularityFormatError(granularity)
	}
	magnitude, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		// Magnitude too large to represent.
		return 0, granularityFormatError(granularity)
	}
	return magnitude * unitMS[match[2]], nil
}

// GranularityUnitToMS returns the millisecond magnitude of a granularity's
// unit, i.e. the granularity with its magnitude forced to 1. "3h" yields one
// hour (3600000).
func GranularityUnitToMS(granularity string) (int64, error) {
	match := granularityPattern.FindStringSubmatch(granularity)
	if match == nil {
		// Same failure mode as GranularityToMS for a consistent message.
		_, err := GranularityToMS(granularity)
		return 0, err
	}
	return unitMS[match[2]], nil
}
