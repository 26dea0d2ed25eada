package topology

import (
	"fmt"
)

// =============================================================================
// Document
// =============================================================================

// Document is a persisted pipeline topology.
type Document struct {
	Name       string         `json:"name"`
	APIVersion string         `json:"@apiVersion,omitempty"`
	SystemData map[string]any `json:"systemData,omitempty"`
	Properties Body           `json:"properties"`
}

// Body holds the topology description, its parameters and the node buckets.
type Body struct {
	Description string       `json:"description,omitempty"`
	Parameters  []Parameter  `json:"parameters,omitempty"`
	Sources     []Properties `json:"sources,omitempty"`
	Processors  []Properties `json:"processors,omitempty"`
	Sinks       []Properties `json:"sinks,omitempty"`
}

// NodeCount returns the number of nodes across all buckets.
func (d *Document) NodeCount() int {
	return len(d.Properties.Sources) + len(d.Properties.Processors) + len(d.Properties.Sinks)
}

// Bucket returns the nodes stored under the given node type.
// Other has no bucket and yields nil.
func (d *Document) Bucket(t NodeType) []Properties {
	switch t {
	case Source:
		return d.Properties.Sources
	case Processor:
		return d.Properties.Processors
	case Sink:
		return d.Properties.Sinks
	default:
		return nil
	}
}

// check rejects documents the decoder accepted but the data model does not.
func (d *Document) check() error {
	seen := make(map[string]bool, len(d.Properties.Parameters))
	for _, p := range d.Properties.Parameters {
		if !p.Type.Valid() {
			return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// =============================================================================
// Parameters
// =============================================================================

// ParameterType is the declared type of a topology parameter.
type ParameterType string

// Parameter types accepted by the pipeline runtime.
const (
	ParameterString       ParameterType = "String"
	ParameterSecretString ParameterType = "SecretString"
	ParameterInt          ParameterType = "Int"
	ParameterDouble       ParameterType = "Double"
	ParameterBool         ParameterType = "Bool"
)

// Valid reports whether t is one of the known parameter types.
func (t ParameterType) Valid() bool {
	switch t {
	case ParameterString, ParameterSecretString, ParameterInt, ParameterDouble, ParameterBool:
		return true
	}
	return false
}

// Parameter declares a value substituted into node properties at
// instantiation time (referenced as "${name}").
type Parameter struct {
	Name        string        `json:"name"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description,omitempty"`
	Default     *string       `json:"default,omitempty"`
}

// =============================================================================
// Node Types
// =============================================================================

// NodeType classifies a node as a source, processor or sink.
type NodeType int

const (
	// Other marks nodes outside the three buckets. They are never exported.
	Other NodeType = iota
	// Source nodes produce media and have a single output port.
	Source
	// Processor nodes transform media and have one input and one output port.
	Processor
	// Sink nodes consume media and have a single input port.
	Sink
)

var nodeTypeNames = map[NodeType]string{
	Other:     "other",
	Source:    "source",
	Processor: "processor",
	Sink:      "sink",
}

// NodeTypes lists the exported node types in bucket order.
var NodeTypes = []NodeType{Source, Processor, Sink}

// String returns the lower-case name of the node type.
func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseNodeType converts a name produced by [NodeType.String] back to a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	for t, name := range nodeTypeNames {
		if name == s {
			return t, nil
		}
	}
	return Other, fmt.Errorf("unknown node type %q", s)
}

// HasInput reports whether nodes of this type accept upstream connections.
func (t NodeType) HasInput() bool { return t == Processor || t == Sink }

// HasOutput reports whether nodes of this type feed downstream nodes.
func (t NodeType) HasOutput() bool { return t == Source || t == Processor }
