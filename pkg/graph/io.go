package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalJSON encodes the graph as {nodes, edges} in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	w := wire{Nodes: make([]Node, 0, len(g.order)), Edges: g.Edges()}
	for _, n := range g.Nodes() {
		w.Nodes = append(w.Nodes, *n)
	}
	if w.Edges == nil {
		w.Edges = []Edge{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON replaces the graph contents, rebuilding the adjacency
// indices. Edges whose endpoints or ports do not exist are rejected.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	fresh := New()
	for _, n := range w.Nodes {
		if err := fresh.AddNode(n); err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
	}
	for _, e := range w.Edges {
		if err := fresh.AddEdge(e); err != nil {
			return fmt.Errorf("edge %q: %w", e.ID, err)
		}
	}
	*g = *fresh
	return nil
}

// Marshal encodes a graph as indented JSON bytes.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a graph as indented JSON.
func Write(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Read decodes a JSON graph.
func Read(r io.Reader) (*Graph, error) {
	g := New()
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return g, nil
}

// ReadFile reads a JSON graph from disk.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile writes a graph to disk with 0644 permissions.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, g)
}
