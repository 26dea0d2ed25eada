package graph

import (
	"github.com/google/uuid"

	"github.com/matzehuels/topoedit/pkg/topology"
)

// Port names.
const (
	PortInput  = "input"
	PortOutput = "output"
)

// Display footprint of a node on the canvas, in pixels.
const (
	NodeWidth  = 350
	NodeHeight = 70
)

// Port is a connection point on a node.
type Port struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	IsInputDisabled  bool   `json:"isInputDisabled"`
	IsOutputDisabled bool   `json:"isOutputDisabled"`
}

// IsInput reports whether the port accepts incoming edges.
func (p Port) IsInput() bool { return !p.IsInputDisabled }

// IsOutput reports whether the port emits outgoing edges.
func (p Port) IsOutput() bool { return !p.IsOutputDisabled }

// NewPorts synthesizes the ports for a node kind with fresh ids.
// Output comes before input for processors.
func NewPorts(kind topology.NodeType) []Port {
	var ports []Port
	if kind.HasOutput() {
		ports = append(ports, Port{ID: uuid.NewString(), Name: PortOutput, IsInputDisabled: true})
	}
	if kind.HasInput() {
		ports = append(ports, Port{ID: uuid.NewString(), Name: PortInput, IsOutputDisabled: true})
	}
	return ports
}

// NodeData is the domain payload of a node.
type NodeData struct {
	NodeProperties topology.Properties `json:"nodeProperties"`
	NodeType       topology.NodeType   `json:"nodeType"`
}

// Node is a pipeline stage on the canvas. X and Y are the top-left corner.
type Node struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Data  NodeData `json:"data"`
	Ports []Port   `json:"ports"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
}

// NewNode creates a node with a fresh id, ports for its kind and a
// placeholder position. Properties are used as given.
func NewNode(name string, kind topology.NodeType, props topology.Properties) Node {
	return Node{
		ID:    uuid.NewString(),
		Name:  name,
		Data:  NodeData{NodeProperties: props, NodeType: kind},
		Ports: NewPorts(kind),
	}
}

// Type returns the node's "@type" discriminator.
func (n *Node) Type() string { return n.Data.NodeProperties.Type() }

// Edge joins an output port of Source to an input port of Target.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourcePortID string `json:"sourcePortId"`
	TargetPortID string `json:"targetPortId"`
}

type wire struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}
