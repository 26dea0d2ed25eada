// Package layout assigns canvas coordinates to graph nodes.
//
// An [Engine] receives node footprints and the links between them and
// returns the centre of every node in a y-down pixel frame. [Apply] runs an
// engine over a graph and stores each node's top-left corner, i.e. the
// returned centre minus half the footprint.
//
// Engines:
//
//   - [Graphviz]: the dot layered layout via goccy/go-graphviz
//   - [Layered]: longest-path rows computed in Go, no cgo or wasm runtime
//   - [Cached]: memoizes another engine in a [cache.Cache]
package layout

import (
	"context"
	"fmt"

	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/graph"
)

// Point is a position in pixels, y growing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Box is a node footprint.
type Box struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Link is a directed connection between two boxes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Engine computes node centres. Every box ID must appear in the result.
type Engine interface {
	Layout(ctx context.Context, boxes []Box, links []Link) (map[string]Point, error)
}

// Named engines carry a stable name used in cache keys and logs.
type Named interface {
	Name() string
}

// EngineName returns e's name, or its Go type when it has none.
func EngineName(e Engine) string {
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", e)
}

// Input converts a graph into engine input. Every node uses the standard
// canvas footprint.
func Input(g *graph.Graph) ([]Box, []Link) {
	nodes := g.Nodes()
	boxes := make([]Box, len(nodes))
	for i, n := range nodes {
		boxes[i] = Box{ID: n.ID, Width: graph.NodeWidth, Height: graph.NodeHeight}
	}
	edges := g.Edges()
	links := make([]Link, len(edges))
	for i, e := range edges {
		links[i] = Link{Source: e.Source, Target: e.Target}
	}
	return boxes, links
}

// Apply lays out g with e and moves every node so that the computed centre
// becomes the node centre.
func Apply(ctx context.Context, e Engine, g *graph.Graph) error {
	if g.NodeCount() == 0 {
		return nil
	}
	boxes, links := Input(g)
	centres, err := e.Layout(ctx, boxes, links)
	if err != nil {
		return fmt.Errorf("layout %s: %w", EngineName(e), err)
	}
	for _, b := range boxes {
		c, ok := centres[b.ID]
		if !ok {
			return fmt.Errorf("layout %s: no position for node %s", EngineName(e), b.ID)
		}
		n, _ := g.Node(b.ID)
		n.X = c.X - b.Width/2
		n.Y = c.Y - b.Height/2
	}
	return nil
}

func errUnknownEngine(name string) error {
	return errors.New(errors.ErrCodeInvalidInput, "unknown layout engine %q", name)
}
