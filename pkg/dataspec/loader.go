package dataspec

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// unmarshalObject parses a canonical JSON document into a primitive map.
func unmarshalObject(text string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON in spec: %w", err)
	}
	return m, nil
}

// ParseDataSpec loads a DataSpec authored as YAML or JSON.
//
// YAML is attempted first (it is a superset of JSON), then JSON. The loaded
// document is validated strictly: unknown fields are rejected.
func ParseDataSpec(data []byte) (*DataSpec, error) {
	m, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return LoadDataSpec(m)
}

// ParseScheduleDataSpec loads a ScheduleDataSpec authored as YAML or JSON.
func ParseScheduleDataSpec(data []byte) (*ScheduleDataSpec, error) {
	m, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return LoadScheduleDataSpec(m)
}

// decodeDocument parses spec bytes into a primitive map, trying YAML first
// and falling back to JSON.
func decodeDocument(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, errors.New("spec document is empty")
	}

	var raw any
	yamlErr := yaml.Unmarshal(data, &raw)
	if yamlErr == nil {
		m, ok := normalizeDocument(raw).(map[string]any)
		if !ok {
			return nil, errors.New("spec document must be a mapping")
		}
		return m, nil
	}

	var m map[string]any
	if jsonErr := json.Unmarshal(data, &m); jsonErr == nil {
		return m, nil
	}
	return nil, fmt.Errorf("failed to parse spec (tried YAML and JSON): %w", yamlErr)
}

// normalizeDocument rewrites yaml's occasional map[any]any nodes into
// map[string]any so the loaders see one shape.
func normalizeDocument(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			node[k] = normalizeDocument(child)
		}
		return node
	case map[any]any:
		m := make(map[string]any, len(node))
		for k, child := range node {
			m[fmt.Sprint(k)] = normalizeDocument(child)
		}
		return m
	case []any:
		for i, child := range node {
			node[i] = normalizeDocument(child)
		}
		return node
	default:
		return v
	}
}
