package graph

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNode is returned when an operation names a node that does not
	// exist.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the Source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the Target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidPort is returned by [Graph.AddEdge] when SourcePortID is not an
	// output port of Source, or TargetPortID is not an input port of Target.
	ErrInvalidPort = errors.New("invalid edge port")

	// ErrInvalidEdgeID is returned by [Graph.AddEdge] when the edge ID is empty.
	ErrInvalidEdgeID = errors.New("edge ID must not be empty")

	// ErrDuplicateEdge is returned by [Graph.AddEdge] when an edge with the
	// same ID or the same port pair already exists.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrUnknownEdge is returned by [Graph.RemoveEdge] when no edge has the
	// given ID.
	ErrUnknownEdge = errors.New("unknown edge")
)

// Graph is the working set of nodes and edges.
//
// The zero value is not usable; use New. Graph is not safe for concurrent
// use without external synchronization.
type Graph struct {
	nodes    map[string]*Node
	order    []string            // node IDs in insertion order
	edges    []Edge              // insertion order
	incoming map[string][]string // nodeID -> parent IDs
	outgoing map[string][]string // nodeID -> child IDs
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		incoming: make(map[string][]string),
		outgoing: make(map[string][]string),
	}
}

// =============================================================================
// Mutations
// =============================================================================

// AddNode adds a node. Returns ErrInvalidNodeID if the ID is empty or
// ErrDuplicateNodeID if it is already in use. Names are not checked for
// uniqueness here; see package session.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	node := &n
	g.nodes[n.ID] = node
	g.order = append(g.order, n.ID)
	return nil
}

// RemoveNode deletes a node and every edge incident to it. The removed
// edges are returned in insertion order.
func (g *Graph) RemoveNode(id string) ([]Edge, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, ErrUnknownNode
	}

	var removed []Edge
	g.edges = slices.DeleteFunc(g.edges, func(e Edge) bool {
		if e.Source == id || e.Target == id {
			removed = append(removed, e)
			return true
		}
		return false
	})
	for _, e := range removed {
		g.unlink(e.Source, e.Target)
	}

	delete(g.nodes, id)
	delete(g.incoming, id)
	delete(g.outgoing, id)
	g.order = slices.DeleteFunc(g.order, func(s string) bool { return s == id })
	return removed, nil
}

// AddEdge adds an edge from an output port to an input port. The port IDs
// must belong to the respective nodes and point the right way, and no other
// edge may join the same port pair.
func (g *Graph) AddEdge(e Edge) error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	src, ok := g.nodes[e.Source]
	if !ok {
		return ErrUnknownSourceNode
	}
	dst, ok := g.nodes[e.Target]
	if !ok {
		return ErrUnknownTargetNode
	}
	if p, ok := portByID(src, e.SourcePortID); !ok || !p.IsOutput() {
		return ErrInvalidPort
	}
	if p, ok := portByID(dst, e.TargetPortID); !ok || !p.IsInput() {
		return ErrInvalidPort
	}
	for _, existing := range g.edges {
		if existing.ID == e.ID {
			return ErrDuplicateEdge
		}
		if existing.SourcePortID == e.SourcePortID && existing.TargetPortID == e.TargetPortID {
			return ErrDuplicateEdge
		}
	}

	g.edges = append(g.edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.Target)
	g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	return nil
}

// RemoveEdge deletes the edge with the given ID and returns it.
func (g *Graph) RemoveEdge(id string) (Edge, error) {
	i := slices.IndexFunc(g.edges, func(e Edge) bool { return e.ID == id })
	if i < 0 {
		return Edge{}, ErrUnknownEdge
	}
	e := g.edges[i]
	g.edges = slices.Delete(g.edges, i, i+1)
	g.unlink(e.Source, e.Target)
	return e, nil
}

// unlink drops one source->target entry from the adjacency indices.
func (g *Graph) unlink(source, target string) {
	if i := slices.Index(g.outgoing[source], target); i >= 0 {
		g.outgoing[source] = slices.Delete(g.outgoing[source], i, i+1)
	}
	if i := slices.Index(g.incoming[target], source); i >= 0 {
		g.incoming[target] = slices.Delete(g.incoming[target], i, i+1)
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Node returns the node with the given ID. The pointer refers to the stored
// node, so changes other than to ID and Ports are visible to the graph.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// IncomingEdges returns the edges targeting the node, in insertion order.
func (g *Graph) IncomingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns the edges leaving the node, in insertion order.
func (g *Graph) OutgoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

func portByID(n *Node, id string) (Port, bool) {
	for _, p := range n.Ports {
		if p.ID == id {
			return p, true
		}
	}
	return Port{}, false
}
