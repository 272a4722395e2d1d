package dataspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataSpecYAML(t *testing.T) {
	doc := []byte(`
timeSeries:
  temperature:
    id: 100
    start: 0
    end: 3600000
    aggregate: average
    granularity: 5m
files:
  model:
    id: 7
metadata:
  owner: platform
  version: 3
`)
	spec, err := ParseDataSpec(doc)
	require.NoError(t, err)

	ts := spec.TimeSeries["temperature"]
	assert.Equal(t, int64(100), ts.ID)
	assert.Equal(t, AggregateAverage, ts.Aggregate)
	assert.Equal(t, "5m", ts.Granularity)
	assert.Equal(t, int64(7), spec.Files["model"].ID)
	assert.Equal(t, "platform", spec.Metadata["owner"])
	assert.Equal(t, int64(3), spec.Metadata["version"])
}

func TestParseDataSpecJSON(t *testing.T) {
	doc := []byte(`{
    "timeSeries": {
        "pressure": {
            "end": 200,
            "id": 5,
            "start": 100
        }
    }
}`)
	spec, err := ParseDataSpec(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(5), spec.TimeSeries["pressure"].ID)

	// Canonical text of the parsed spec re-parses to an equal spec.
	text, err := spec.ToJSON()
	require.NoError(t, err)
	again, err := ParseDataSpec([]byte(text))
	require.NoError(t, err)
	assert.True(t, spec.Equal(again))
}

func TestParseDataSpecUnknownField(t *testing.T) {
	doc := []byte(`
timeSeries:
  ts1:
    id: 1
    start: 0
    end: 100
    color: blue
`)
	_, err := ParseDataSpec(doc)
	require.Error(t, err)
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "Unknown field.")
}

func TestParseDataSpecMalformed(t *testing.T) {
	_, err := ParseDataSpec([]byte("{not yaml: [nor json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse spec")

	_, err = ParseDataSpec(nil)
	require.Error(t, err)

	_, err = ParseDataSpec([]byte(`["a", "list"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestParseScheduleDataSpec(t *testing.T) {
	doc := []byte(`
input:
  timeSeries:
    ts1:
      id: 1
      aggregate: average
      granularity: 1h
output:
  timeSeries:
    out:
      id: 2
      offset: 60000
stride: 3600000
windowSize: 7200000
start: 0
slack: -1
`)
	spec, err := ParseScheduleDataSpec(doc)
	require.NoError(t, err)
	assert.Equal(t, int64(3_600_000), spec.Stride)
	assert.Equal(t, SlackUnbounded, spec.Slack)
	assert.Equal(t, int64(60_000), spec.Output.TimeSeries["out"].Offset)
}

func TestParseScheduleDataSpecRejectsWindowFieldsOnInput(t *testing.T) {
	doc := []byte(`
input:
  timeSeries:
    ts1:
      id: 1
      start: 0
      end: 100
output:
  timeSeries: {}
stride: 60000
windowSize: 60000
start: 0
`)
	_, err := ParseScheduleDataSpec(doc)
	require.Error(t, err)
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "Unknown field.")
}
