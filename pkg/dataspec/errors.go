package dataspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrValidationFailed is the sentinel all spec validation errors unwrap to.
var ErrValidationFailed = errors.New("spec validation failed")

// ErrorTree accumulates validation messages keyed by wire field name.
//
// A node carries either leaf messages or child nodes, mirroring the shape of
// the data being validated: scalar fields collect messages directly, map
// fields nest one child per offending alias. The JSON form is the wire error
// shape, e.g.
//
//	{"files": {"f1": {"id": ["Missing data for required field."]}}}
type ErrorTree struct {
	messages []string
	fields   map[string]*ErrorTree
}

// NewErrorTree returns an empty accumulator.
func NewErrorTree() *ErrorTree {
	return &ErrorTree{}
}

// Add appends a message at this node.
func (t *ErrorTree) Add(msg string) {
	t.messages = append(t.messages, msg)
}

// Addf appends a formatted message at this node.
func (t *ErrorTree) Addf(format string, args ...any) {
	t.Add(fmt.Sprintf(format, args...))
}

// Field returns the child node for the given wire field name, creating it if
// needed.
func (t *ErrorTree) Field(name string) *ErrorTree {
	if t.fields == nil {
		t.fields = make(map[string]*ErrorTree)
	}
	child, ok := t.fields[name]
	if !ok {
		child = &ErrorTree{}
		t.fields[name] = child
	}
	return child
}

// Empty reports whether no messages were collected anywhere in the tree.
func (t *ErrorTree) Empty() bool {
	if len(t.messages) > 0 {
		return false
	}
	for _, child := range t.fields {
		if !child.Empty() {
			return false
		}
	}
	return true
}

// prune drops empty children so the marshaled tree contains only paths that
// actually carry messages.
func (t *ErrorTree) prune() {
	for name, child := range t.fields {
		child.prune()
		if child.Empty() {
			delete(t.fields, name)
		}
	}
}

// Primitive returns the tree as nested maps and string slices, the same
// structure its JSON form encodes.
func (t *ErrorTree) Primitive() any {
	if len(t.fields) == 0 {
		return append([]string(nil), t.messages...)
	}
	m := make(map[string]any, len(t.fields))
	for name, child := range t.fields {
		if child.Empty() {
			continue
		}
		m[name] = child.Primitive()
	}
	if len(t.messages) > 0 {
		m["_schema"] = append([]string(nil), t.messages...)
	}
	return m
}

// MarshalJSON encodes the tree in the wire error shape.
func (t *ErrorTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Primitive())
}

// flatten renders every path/message pair as "path.to.field: message",
// sorted for stable error strings.
func (t *ErrorTree) flatten(prefix string, out *[]string) {
	for _, msg := range t.messages {
		if prefix == "" {
			*out = append(*out, msg)
		} else {
			*out = append(*out, prefix+": "+msg)
		}
	}
	for name, child := range t.fields {
		if child.Empty() {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}
		child.flatten(path, out)
	}
}

// Err wraps the tree in a ValidationError, or returns nil if it is empty.
func (t *ErrorTree) Err() error {
	if t.Empty() {
		return nil
	}
	t.prune()
	return &ValidationError{tree: t}
}

// ValidationError reports one or more spec invariant violations. It carries
// the full nested field-path to messages tree for programmatic inspection.
//
// Validation errors mean the caller supplied malformed input; they are
// recoverable by correcting the input and are never worth retrying.
type ValidationError struct {
	tree *ErrorTree
}

// Error implements the error interface. All violations are listed, one per
// line, with dotted field paths.
func (e *ValidationError) Error() string {
	var lines []string
	e.tree.flatten("", &lines)
	sort.Strings(lines)

	switch len(lines) {
	case 0:
		return "spec validation failed"
	case 1:
		return "spec validation failed: " + lines[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "spec validation failed with %d errors:", len(lines))
	for _, line := range lines {
		b.WriteString("\n  - ")
		b.WriteString(line)
	}
	return b.String()
}

// Unwrap makes errors.Is(err, ErrValidationFailed) work.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Tree returns the underlying error tree.
func (e *ValidationError) Tree() *ErrorTree {
	return e.tree
}

// Messages returns the tree as nested maps and string slices.
func (e *ValidationError) Messages() any {
	return e.tree.Primitive()
}

// IsValidation reports whether err is a spec validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
