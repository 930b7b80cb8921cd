// Package telemetry extracts session metadata from agent event exports: the
// model and session identity, tool and subagent usage, token totals, and a
// phase timeline. Events arrive as arbitrary JSON; extraction walks a tagged
// tree and dispatches mapping nodes to handlers keyed by the fields they
// understand.
package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Kind discriminates event tree nodes.
type Kind int

const (
	KindMapping Kind = iota
	KindSequence
	KindScalar
)

// Node is one node of a decoded event tree. Exactly one of Mapping, Sequence
// or Value is meaningful, selected by Kind.
type Node struct {
	Kind     Kind
	Mapping  map[string]*Node
	Sequence []*Node
	Value    any
}

func fromValue(v any) *Node {
	switch value := v.(type) {
	case map[string]any:
		mapping := make(map[string]*Node, len(value))
		for key, child := range value {
			mapping[key] = fromValue(child)
		}
		return &Node{Kind: KindMapping, Mapping: mapping}
	case []any:
		sequence := make([]*Node, 0, len(value))
		for _, child := range value {
			sequence = append(sequence, fromValue(child))
		}
		return &Node{Kind: KindSequence, Sequence: sequence}
	default:
		return &Node{Kind: KindScalar, Value: value}
	}
}

// ParseEvent decodes one JSON document into an event tree.
func ParseEvent(data []byte) (*Node, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing event: %w", err)
	}
	return fromValue(raw), nil
}

// LoadEventsJSONL reads one event per line, skipping blank and malformed
// lines.
func LoadEventsJSONL(path string) ([]*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var events []*Node
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		event, err := ParseEvent(line)
		if err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

// LoadEventsJSON reads a single JSON export as one event tree.
func LoadEventsJSON(path string) ([]*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	event, err := ParseEvent(data)
	if err != nil {
		return nil, err
	}
	return []*Node{event}, nil
}

// Walk visits every mapping node in the tree, parents before children.
func (n *Node) Walk(visit func(mapping map[string]*Node)) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindMapping:
		visit(n.Mapping)
		for _, child := range n.Mapping {
			child.Walk(visit)
		}
	case KindSequence:
		for _, child := range n.Sequence {
			child.Walk(visit)
		}
	}
}

// String returns the scalar string value, or "" when the node is not a
// string.
func (n *Node) String() string {
	if n == nil || n.Kind != KindScalar {
		return ""
	}
	s, _ := n.Value.(string)
	return s
}

// Int returns the scalar numeric value truncated to int64. JSON numbers
// decode as float64; non-integral values report false.
func (n *Node) Int() (int64, bool) {
	if n == nil || n.Kind != KindScalar {
		return 0, false
	}
	f, ok := n.Value.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Float returns the scalar numeric value.
func (n *Node) Float() (float64, bool) {
	if n == nil || n.Kind != KindScalar {
		return 0, false
	}
	f, ok := n.Value.(float64)
	return f, ok
}
