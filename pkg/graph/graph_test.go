package graph

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/matzehuels/topoedit/pkg/topology"
)

// addNode adds a node named name with ports for kind and returns its ID.
func addNode(t *testing.T, g *Graph, name string, kind topology.NodeType) string {
	t.Helper()
	n := NewNode(name, kind, topology.Properties{topology.KeyType: "X." + kind.String(), topology.KeyName: name})
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode(%s): %v", name, err)
	}
	return n.ID
}

// connect adds an edge from src's output port to dst's input port.
func connect(t *testing.T, g *Graph, src, dst string) Edge {
	t.Helper()
	out, ok := g.Port(src, false)
	if !ok {
		t.Fatalf("%s has no output port", src)
	}
	in, ok := g.Port(dst, true)
	if !ok {
		t.Fatalf("%s has no input port", dst)
	}
	e := Edge{ID: src + "->" + dst, Source: src, Target: dst, SourcePortID: out.ID, TargetPortID: in.ID}
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("AddEdge(%s): %v", e.ID, err)
	}
	return e
}

func TestNewPorts(t *testing.T) {
	tests := []struct {
		kind        topology.NodeType
		inputs      int
		outputs     int
		wantPortLen int
	}{
		{topology.Source, 0, 1, 1},
		{topology.Processor, 1, 1, 2},
		{topology.Sink, 1, 0, 1},
		{topology.Other, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			ports := NewPorts(tt.kind)
			if len(ports) != tt.wantPortLen {
				t.Fatalf("len(ports) = %d, want %d", len(ports), tt.wantPortLen)
			}
			var in, out int
			for _, p := range ports {
				if p.IsInputDisabled == p.IsOutputDisabled {
					t.Errorf("port %s has both or neither direction", p.Name)
				}
				if p.IsInput() {
					in++
				}
				if p.IsOutput() {
					out++
				}
			}
			if in != tt.inputs || out != tt.outputs {
				t.Errorf("inputs/outputs = %d/%d, want %d/%d", in, out, tt.inputs, tt.outputs)
			}
		})
	}
}

func TestAddNodeErrors(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{}); !errors.Is(err, ErrInvalidNodeID) {
		t.Errorf("empty ID: got %v", err)
	}
	_ = g.AddNode(Node{ID: "a"})
	if err := g.AddNode(Node{ID: "a"}); !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("duplicate ID: got %v", err)
	}
}

func TestAddEdgeErrors(t *testing.T) {
	g := New()
	s := addNode(t, g, "s", topology.Source)
	k := addNode(t, g, "k", topology.Sink)
	sOut, _ := g.Port(s, false)
	kIn, _ := g.Port(k, true)

	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"NoID", Edge{Source: s, Target: k, SourcePortID: sOut.ID, TargetPortID: kIn.ID}, ErrInvalidEdgeID},
		{"UnknownSource", Edge{ID: "e", Source: "x", Target: k, SourcePortID: sOut.ID, TargetPortID: kIn.ID}, ErrUnknownSourceNode},
		{"UnknownTarget", Edge{ID: "e", Source: s, Target: "x", SourcePortID: sOut.ID, TargetPortID: kIn.ID}, ErrUnknownTargetNode},
		{"WrongSourcePort", Edge{ID: "e", Source: s, Target: k, SourcePortID: kIn.ID, TargetPortID: kIn.ID}, ErrInvalidPort},
		{"ReversedPorts", Edge{ID: "e", Source: k, Target: s, SourcePortID: kIn.ID, TargetPortID: sOut.ID}, ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.AddEdge(tt.edge); !errors.Is(err, tt.want) {
				t.Errorf("AddEdge() = %v, want %v", err, tt.want)
			}
		})
	}

	connect(t, g, s, k)
	dup := Edge{ID: "other", Source: s, Target: k, SourcePortID: sOut.ID, TargetPortID: kIn.ID}
	if err := g.AddEdge(dup); !errors.Is(err, ErrDuplicateEdge) {
		t.Errorf("duplicate port pair: got %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	g := New()
	s := addNode(t, g, "s", topology.Source)
	p := addNode(t, g, "p", topology.Processor)
	k := addNode(t, g, "k", topology.Sink)
	connect(t, g, s, p)
	connect(t, g, p, k)

	removed, err := g.RemoveNode(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %d edges, want 2", len(removed))
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 0 {
		t.Errorf("counts = %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if len(g.OutgoingEdges(s)) != 0 || len(g.DirectParents(k)) != 0 || len(g.NodeInputs(k)) != 0 {
		t.Error("adjacency not cleaned up")
	}
	if _, err := g.RemoveNode(p); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("second RemoveNode = %v, want ErrUnknownNode", err)
	}
}

func TestRemoveEdge(t *testing.T) {
	g := New()
	s := addNode(t, g, "s", topology.Source)
	k := addNode(t, g, "k", topology.Sink)
	e := connect(t, g, s, k)

	got, err := g.RemoveEdge(e.ID)
	if err != nil || got != e {
		t.Fatalf("RemoveEdge = %v, %v", got, err)
	}
	if len(g.DirectParents(k)) != 0 {
		t.Error("edge still visible through DirectParents")
	}
	if _, err := g.RemoveEdge(e.ID); !errors.Is(err, ErrUnknownEdge) {
		t.Errorf("second RemoveEdge = %v", err)
	}
}

func TestConnected(t *testing.T) {
	g := New()
	if !g.Connected() {
		t.Error("empty graph should be connected")
	}

	a := addNode(t, g, "a", topology.Source)
	b := addNode(t, g, "b", topology.Processor)
	c := addNode(t, g, "c", topology.Processor)
	d := addNode(t, g, "d", topology.Sink)
	connect(t, g, a, b)
	connect(t, g, c, d)
	if g.Connected() {
		t.Error("two components should not be connected")
	}

	connect(t, g, b, d)
	if !g.Connected() {
		t.Error("bridged components should be connected")
	}
}

func TestParents(t *testing.T) {
	// s -> p1 -> p2 -> k, plus a cycle p2 -> p1
	g := New()
	s := addNode(t, g, "s", topology.Source)
	p1 := addNode(t, g, "p1", topology.Processor)
	p2 := addNode(t, g, "p2", topology.Processor)
	k := addNode(t, g, "k", topology.Sink)
	connect(t, g, s, p1)
	connect(t, g, p1, p2)
	connect(t, g, p2, k)

	if got := names(g.DirectParents(k)); !reflect.DeepEqual(got, []string{"p2"}) {
		t.Errorf("DirectParents(k) = %v", got)
	}
	if got := names(g.AllParents(k)); !reflect.DeepEqual(got, []string{"p2", "p1", "s"}) {
		t.Errorf("AllParents(k) = %v", got)
	}
	if got := g.AllParents(s); len(got) != 0 {
		t.Errorf("AllParents(s) = %v, want none", names(got))
	}

	connect(t, g, p2, p1)
	got := names(g.AllParents(k))
	if !reflect.DeepEqual(got, []string{"p2", "p1", "s"}) {
		t.Errorf("AllParents(k) with cycle = %v", got)
	}
	if got := names(g.AllParents(p1)); !reflect.DeepEqual(got, []string{"s", "p2", "p1"}) {
		t.Errorf("AllParents(p1) with cycle = %v", got)
	}
}

func TestNodeInputsAndLookup(t *testing.T) {
	g := New()
	a := addNode(t, g, "a", topology.Source)
	b := addNode(t, g, "b", topology.Source)
	k := addNode(t, g, "k", topology.Sink)
	connect(t, g, b, k)
	connect(t, g, a, k)

	if got := g.NodeInputs(k); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("NodeInputs(k) = %v, want [b a]", got)
	}
	n, ok := g.NodeByName("b")
	if !ok || n.ID != b {
		t.Errorf("NodeByName(b) = %v, %v", n, ok)
	}
	if _, ok := g.NodeByName("zzz"); ok {
		t.Error("NodeByName(zzz) should fail")
	}
	if _, ok := g.Port(a, true); ok {
		t.Error("source should have no input port")
	}
	if _, ok := g.Port("missing", false); ok {
		t.Error("Port on missing node should fail")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	g := New()
	s := addNode(t, g, "s", topology.Source)
	k := addNode(t, g, "k", topology.Sink)
	connect(t, g, s, k)
	n, _ := g.Node(k)
	n.X, n.Y = 10, 20

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteFile(g, path); err != nil {
		t.Fatal(err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if back.NodeCount() != 2 || back.EdgeCount() != 1 {
		t.Fatalf("counts = %d/%d", back.NodeCount(), back.EdgeCount())
	}
	kb, _ := back.Node(k)
	if kb.X != 10 || kb.Y != 20 || kb.Data.NodeType != topology.Sink || kb.Type() != "X.sink" {
		t.Errorf("node k = %+v", kb)
	}
	if got := names(back.DirectParents(k)); !reflect.DeepEqual(got, []string{"s"}) {
		t.Errorf("adjacency not rebuilt: %v", got)
	}
}

func TestUnmarshalRejectsDanglingEdge(t *testing.T) {
	data := []byte(`{"nodes": [], "edges": [{"id": "e", "source": "a", "target": "b", "sourcePortId": "x", "targetPortId": "y"}]}`)
	var g Graph
	if err := json.Unmarshal(data, &g); !errors.Is(err, ErrUnknownSourceNode) {
		t.Errorf("Unmarshal = %v, want ErrUnknownSourceNode", err)
	}
}

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}
