// Package render draws an editing graph as a node-link diagram.
//
// [ToDOT] produces Graphviz DOT text; [Render] turns it into SVG or PNG with
// an embedded Graphviz. A [Renderer] puts a cache in front of both so the
// API server and repeated CLI runs reuse previous output.
//
//	dot := render.ToDOT(g, render.Options{Detailed: true})
//	svg, err := render.Render(ctx, dot, render.FormatSVG, false)
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed adds the short node type under each name.
	Detailed bool
	// Pinned keeps the positions stored in the graph instead of letting
	// Graphviz lay the nodes out.
	Pinned bool
	// Highlight marks nodes by ID, typically those with validation errors.
	Highlight map[string]bool
}

var fill = map[topology.NodeType]string{
	topology.Source:    "#d8f3dc",
	topology.Processor: "#dbe9f6",
	topology.Sink:      "#fde2c8",
	topology.Other:     "#eeeeee",
}

// ToDOT converts a graph to DOT. Nodes are identified by their position in
// the graph, so the output depends only on names, types, order and edges,
// not on the session's node ids.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [color=\"#555555\"];\n")
	if opts.Pinned {
		buf.WriteString("  splines=true;\n")
	}
	buf.WriteString("\n")

	ids := make(map[string]string, g.NodeCount())
	for i, n := range g.Nodes() {
		id := fmt.Sprintf("n%d", i)
		ids[n.ID] = id
		fmt.Fprintf(&buf, "  %s [%s];\n", id, strings.Join(nodeAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %s -> %s;\n", ids[e.Source], ids[e.Target])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, opts Options) []string {
	label := n.Name
	if opts.Detailed {
		label += "\n" + ShortType(n.Type())
	}
	attrs := []string{
		fmt.Sprintf("label=%q", label),
		fmt.Sprintf("fillcolor=%q", fill[n.Data.NodeType]),
	}
	if opts.Highlight[n.ID] {
		attrs = append(attrs, `color="#d62828"`, "penwidth=3")
	}
	if opts.Pinned {
		// neato reads pos in y-up inches; graph coordinates are y-down pixels.
		x := (n.X + graph.NodeWidth/2) / 72
		y := -(n.Y + graph.NodeHeight/2) / 72
		attrs = append(attrs,
			fmt.Sprintf("pos=\"%.3f,%.3f!\"", x, y),
			fmt.Sprintf("width=%g", float64(graph.NodeWidth)/72),
			fmt.Sprintf("height=%g", float64(graph.NodeHeight)/72),
			"fixedsize=true",
		)
	}
	return attrs
}

// ShortType strips the namespace of a discriminator:
// "#Microsoft.VideoAnalyzer.FileSink" becomes "FileSink".
func ShortType(t string) string {
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		return t[i+1:]
	}
	return strings.TrimPrefix(t, "#")
}
