package layout

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/goccy/go-graphviz"
)

// pointsPerInch converts Graphviz sizes. Graphviz positions are in points,
// so boxes sized in px/72 inches come back in pixels.
const pointsPerInch = 72

// Graphviz runs the dot layered layout. Boxes are fixed-size, so the
// returned centres respect the canvas footprints exactly.
type Graphviz struct {
	RankSep float64 // vertical gap between ranks, pixels
	NodeSep float64 // horizontal gap within a rank, pixels
}

func (Graphviz) Name() string { return "graphviz" }

func (g Graphviz) Layout(ctx context.Context, boxes []Box, links []Link) (map[string]Point, error) {
	if len(boxes) == 0 {
		return map[string]Point{}, nil
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(g.dot(boxes, links)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer parsed.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.Format("dot"), &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	centres, err := readPositions(buf.Bytes())
	if err != nil {
		return nil, err
	}
	for _, b := range boxes {
		if _, ok := centres[b.ID]; !ok {
			return nil, fmt.Errorf("graphviz output has no position for %s", b.ID)
		}
	}
	return centres, nil
}

// dot writes the input graph. Nodes are unlabelled fixed-size boxes.
func (g Graphviz) dot(boxes []Box, links []Link) string {
	rankSep, nodeSep := g.RankSep, g.NodeSep
	if rankSep <= 0 {
		rankSep = DefaultRankSep
	}
	if nodeSep <= 0 {
		nodeSep = DefaultNodeSep
	}

	var buf strings.Builder
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(rankSep))
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(nodeSep))
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n\n")
	for _, b := range boxes {
		fmt.Fprintf(&buf, "  %q [width=%s, height=%s];\n", b.ID, inches(b.Width), inches(b.Height))
	}
	buf.WriteString("\n")
	for _, l := range links {
		fmt.Fprintf(&buf, "  %q -> %q;\n", l.Source, l.Target)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func inches(px float64) string {
	return strconv.FormatFloat(px/pointsPerInch, 'f', 4, 64)
}

// readPositions decodes positioned DOT and converts node positions from
// Graphviz's y-up frame into a y-down frame anchored at the bounding box.
func readPositions(out []byte) (map[string]Point, error) {
	// Graphviz wraps long attribute values with backslash-newline.
	out = bytes.ReplaceAll(out, []byte("\\\n"), nil)

	ast, err := gographviz.Parse(out)
	if err != nil {
		return nil, fmt.Errorf("parse graphviz output: %w", err)
	}
	c := newPositionCollector()
	if err := gographviz.Analyse(ast, c); err != nil {
		return nil, fmt.Errorf("analyse graphviz output: %w", err)
	}

	bb, ok := c.graphAttrs["bb"]
	if !ok {
		return nil, fmt.Errorf("graphviz output has no bounding box")
	}
	box, err := parseFloats(bb, 4)
	if err != nil {
		return nil, fmt.Errorf("bounding box %q: %w", bb, err)
	}
	top := box[3]

	centres := make(map[string]Point, len(c.pos))
	for id, pos := range c.pos {
		xy, err := parseFloats(strings.TrimSuffix(pos, "!"), 2)
		if err != nil {
			return nil, fmt.Errorf("position of %s %q: %w", id, pos, err)
		}
		centres[id] = Point{X: xy[0] - box[0], Y: top - xy[1]}
	}
	return centres, nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// positionCollector implements gographviz.Interface, keeping only node
// positions and graph attributes. gographviz.Graph would reject the
// layout attributes Graphviz adds to its output.
type positionCollector struct {
	pos        map[string]string
	graphAttrs map[string]string
}

func newPositionCollector() *positionCollector {
	return &positionCollector{pos: make(map[string]string), graphAttrs: make(map[string]string)}
}

func (c *positionCollector) SetStrict(bool) error { return nil }
func (c *positionCollector) SetDir(bool) error    { return nil }
func (c *positionCollector) SetName(string) error { return nil }
func (c *positionCollector) String() string       { return "" }

func (c *positionCollector) AddNode(_ string, name string, attrs map[string]string) error {
	if p, ok := attrs["pos"]; ok {
		c.pos[unquote(name)] = unquote(p)
	}
	return nil
}

func (c *positionCollector) AddEdge(string, string, bool, map[string]string) error { return nil }

func (c *positionCollector) AddPortEdge(string, string, string, string, bool, map[string]string) error {
	return nil
}

func (c *positionCollector) AddAttr(_ string, field, value string) error {
	c.graphAttrs[field] = unquote(value)
	return nil
}

func (c *positionCollector) AddSubGraph(string, string, map[string]string) error { return nil }

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
