package convert

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/topoedit/pkg/cache"
	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/layout"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
)

const threeNodes = `{
	"name": "T",
	"properties": {
		"sources": [{"@type": "X.Src", "name": "s"}],
		"processors": [{"@type": "X.Proc", "name": "p", "inputs": [{"nodeName": "s"}]}],
		"sinks": [{"@type": "X.Sink", "name": "k", "inputs": [{"nodeName": "p"}]}]
	}
}`

const cvr = `{
	"name": "EVRtoVideoSinkOnMotion",
	"@apiVersion": "1.1",
	"systemData": {"createdAt": "2021-05-01T00:00:00Z"},
	"properties": {
		"description": "Event-based recording on motion",
		"parameters": [
			{"name": "rtspUrl", "type": "String"},
			{"name": "rtspUserName", "type": "String", "default": "user"},
			{"name": "rtspPassword", "type": "SecretString"}
		],
		"sources": [{
			"@type": "#Microsoft.VideoAnalyzer.RtspSource",
			"name": "rtspSource",
			"transport": "tcp",
			"endpoint": {
				"@type": "#Microsoft.VideoAnalyzer.UnsecuredEndpoint",
				"url": "${rtspUrl}",
				"credentials": {
					"@type": "#Microsoft.VideoAnalyzer.UsernamePasswordCredentials",
					"username": "${rtspUserName}",
					"password": "${rtspPassword}"
				}
			}
		}],
		"processors": [
			{
				"@type": "#Microsoft.VideoAnalyzer.MotionDetectionProcessor",
				"name": "motionDetection",
				"sensitivity": "medium",
				"outputMotionRegion": false,
				"inputs": [{"nodeName": "rtspSource"}]
			},
			{
				"@type": "#Microsoft.VideoAnalyzer.SignalGateProcessor",
				"name": "signalGate",
				"activationEvaluationWindow": "PT1S",
				"activationSignalOffset": "PT0S",
				"minimumActivationTime": "PT30S",
				"maximumActivationTime": "PT30S",
				"inputs": [{"nodeName": "motionDetection"}, {"nodeName": "rtspSource"}]
			}
		],
		"sinks": [{
			"@type": "#Microsoft.VideoAnalyzer.VideoSink",
			"name": "videoSink",
			"videoName": "sample-motion",
			"videoCreationProperties": {"title": "Motion", "segmentLength": "PT30S"},
			"localMediaCachePath": "/var/lib/videoanalyzer/tmp/",
			"localMediaCacheMaximumSizeMiB": "2048",
			"inputs": [{"nodeName": "signalGate"}]
		}]
	}
}`

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.New(
		schema.Definition{Type: "X.Src", Kind: topology.Source},
		schema.Definition{Type: "X.Proc", Kind: topology.Processor},
		schema.Definition{Type: "X.Sink", Kind: topology.Sink},
	)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func mustDoc(t *testing.T, src string) *topology.Document {
	t.Helper()
	doc, err := topology.Unmarshal([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func flatten(t *testing.T, doc *topology.Document) (*graph.Graph, topology.Metadata) {
	t.Helper()
	g, meta, err := Flatten(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	return g, meta
}

func TestEndToEndThreeNodes(t *testing.T) {
	doc := mustDoc(t, threeNodes)
	g, meta := flatten(t, doc)

	if g.NodeCount() != 3 || g.EdgeCount() != 2 {
		t.Fatalf("nodes=%d edges=%d, want 3 and 2", g.NodeCount(), g.EdgeCount())
	}
	if !g.Connected() {
		t.Error("flattened graph should be connected")
	}

	s, _ := g.NodeByName("s")
	p, _ := g.NodeByName("p")
	k, _ := g.NodeByName("k")
	edges := g.Edges()
	if edges[0].Source != s.ID || edges[0].Target != p.ID || edges[1].Source != p.ID || edges[1].Target != k.ID {
		t.Errorf("edges = %+v", edges)
	}

	again := Collect(g, meta, testRegistry(t))
	if !reflect.DeepEqual(again, doc) {
		a, _ := topology.Marshal(again)
		b, _ := topology.Marshal(doc)
		t.Errorf("collect(flatten(doc)) != doc\n got %s\nwant %s", a, b)
	}
}

func TestRoundTripVideoAnalyzer(t *testing.T) {
	doc := mustDoc(t, cvr)
	g, meta := flatten(t, doc)
	again := Collect(g, meta, schema.Default())
	if !reflect.DeepEqual(again, doc) {
		a, _ := topology.Marshal(again)
		b, _ := topology.Marshal(doc)
		t.Errorf("round trip mismatch\n got %s\nwant %s", a, b)
	}
}

func TestPortDirections(t *testing.T) {
	g, _ := flatten(t, mustDoc(t, cvr))
	for _, n := range g.Nodes() {
		var in, out int
		for _, p := range n.Ports {
			if p.IsInputDisabled == p.IsOutputDisabled {
				t.Errorf("%s: port %s has ambiguous direction", n.Name, p.ID)
			}
			if p.IsInput() {
				in++
			}
			if p.IsOutput() {
				out++
			}
		}
		want := map[topology.NodeType][2]int{
			topology.Source:    {0, 1},
			topology.Processor: {1, 1},
			topology.Sink:      {1, 0},
		}[n.Data.NodeType]
		if in != want[0] || out != want[1] {
			t.Errorf("%s (%v): %d inputs, %d outputs", n.Name, n.Data.NodeType, in, out)
		}
	}
}

func TestDanglingReference(t *testing.T) {
	var logs bytes.Buffer
	logger := log.NewWithOptions(&logs, log.Options{Level: log.DebugLevel})

	doc := mustDoc(t, `{"name": "T", "properties": {
		"sources": [{"@type": "X.Src", "name": "s"}],
		"sinks": [{"@type": "X.Sink", "name": "k", "inputs": [{"nodeName": "typo"}]}]
	}}`)
	g, _, err := Flatten(context.Background(), doc, Options{Logger: logger})
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	k, _ := g.NodeByName("k")
	if len(g.IncomingEdges(k.ID)) != 0 {
		t.Error("dangling reference produced an edge")
	}
	if g.Connected() {
		t.Error("graph with dropped edge should be disconnected")
	}
	if !strings.Contains(logs.String(), "dangling") {
		t.Errorf("expected debug log for dangling reference, got %q", logs.String())
	}
}

func TestFlattenSkipsImpossibleEdges(t *testing.T) {
	// a sink cannot feed anything; a duplicate reference yields one edge
	doc := mustDoc(t, `{"name": "T", "properties": {
		"sources": [{"@type": "X.Src", "name": "s"}],
		"processors": [{"@type": "X.Proc", "name": "p", "inputs": [{"nodeName": "s"}, {"nodeName": "s"}, {"nodeName": "k"}]}],
		"sinks": [{"@type": "X.Sink", "name": "k"}]
	}}`)
	g, _ := flatten(t, doc)
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}

func TestFlattenPositions(t *testing.T) {
	g, _ := flatten(t, mustDoc(t, threeNodes))
	s, _ := g.NodeByName("s")
	p, _ := g.NodeByName("p")
	if s.Y >= p.Y {
		t.Errorf("source (y=%v) should be above processor (y=%v)", s.Y, p.Y)
	}
	if s.X < 0 || s.Y < 0 {
		t.Errorf("top-left corner out of frame: (%v, %v)", s.X, s.Y)
	}
}

func TestFlattenFreshIDs(t *testing.T) {
	doc := mustDoc(t, threeNodes)
	g1, _ := flatten(t, doc)
	g2, _ := flatten(t, doc)
	a, _ := g1.NodeByName("s")
	b, _ := g2.NodeByName("s")
	if a.ID == b.ID {
		t.Error("node ids should differ between flattenings")
	}
}

type countingEngine struct {
	layout.Engine
	calls int
}

func (c *countingEngine) Layout(ctx context.Context, boxes []layout.Box, links []layout.Link) (map[string]layout.Point, error) {
	c.calls++
	return c.Engine.Layout(ctx, boxes, links)
}

func TestFlattenReusesCachedLayout(t *testing.T) {
	ch, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	inner := &countingEngine{Engine: layout.Layered{}}
	opts := Options{Engine: layout.Cached{Engine: inner, Cache: ch, Logger: log.New(io.Discard)}}
	doc := mustDoc(t, threeNodes)

	var first graph.Node
	for i := 0; i < 3; i++ {
		g, _, err := Flatten(context.Background(), doc, opts)
		if err != nil {
			t.Fatal(err)
		}
		p, _ := g.NodeByName("p")
		if i == 0 {
			first = *p
		} else if p.X != first.X || p.Y != first.Y {
			t.Errorf("flatten %d placed p at (%v, %v), want (%v, %v)", i, p.X, p.Y, first.X, first.Y)
		}
	}
	if inner.calls != 1 {
		t.Errorf("engine ran %d times for 3 flattens, want 1", inner.calls)
	}
}

func TestCollectRebuildsFromGraph(t *testing.T) {
	doc := mustDoc(t, threeNodes)
	g, meta := flatten(t, doc)

	p, _ := g.NodeByName("p")
	p.Name = "renamed"
	k, _ := g.NodeByName("k")
	_ = g.AddNode(graph.NewNode("note", topology.Other, topology.Properties{topology.KeyName: "note"}))

	out := Collect(g, meta, testRegistry(t))
	if got := out.Properties.Processors[0].Name(); got != "renamed" {
		t.Errorf("processor name = %q", got)
	}
	if got := out.Properties.Sinks[0].Inputs(); len(got) != 1 || got[0].NodeName != "renamed" {
		t.Errorf("sink inputs = %v", got)
	}
	if out.NodeCount() != 3 {
		t.Errorf("Other node should be skipped; NodeCount() = %d", out.NodeCount())
	}

	for _, e := range g.IncomingEdges(k.ID) {
		_, _ = g.RemoveEdge(e.ID)
	}
	out = Collect(g, meta, testRegistry(t))
	if _, ok := out.Properties.Sinks[0][topology.KeyInputs]; ok {
		t.Error("inputs should be omitted when the node has no incoming edges")
	}
}

func TestTrim(t *testing.T) {
	reg := schema.Default()
	tests := []struct {
		name string
		in   topology.Properties
		want topology.Properties
	}{
		{
			name: "StaleFieldsDropped",
			in: topology.Properties{
				"@type":       "#Microsoft.VideoAnalyzer.MotionDetectionProcessor",
				"name":        "m",
				"sensitivity": "high",
				"lines":       []any{"left over from line crossing"},
			},
			want: topology.Properties{
				"@type":       "#Microsoft.VideoAnalyzer.MotionDetectionProcessor",
				"sensitivity": "high",
			},
		},
		{
			name: "NestedObjectTrimmed",
			in: topology.Properties{
				"@type": "#Microsoft.VideoAnalyzer.RtspSource",
				"endpoint": map[string]any{
					"@type":               "#Microsoft.VideoAnalyzer.UnsecuredEndpoint",
					"url":                 "rtsp://cam",
					"trustedCertificates": map[string]any{"@type": "#Microsoft.VideoAnalyzer.PemCertificateList"},
				},
			},
			want: topology.Properties{
				"@type": "#Microsoft.VideoAnalyzer.RtspSource",
				"endpoint": map[string]any{
					"@type": "#Microsoft.VideoAnalyzer.UnsecuredEndpoint",
					"url":   "rtsp://cam",
				},
			},
		},
		{
			name: "UntypedOrEmptyObjectDropped",
			in: topology.Properties{
				"@type":    "#Microsoft.VideoAnalyzer.HttpExtension",
				"endpoint": map[string]any{"url": "http://ai"},
				"image":    map[string]any{"format": map[string]any{}},
			},
			want: topology.Properties{
				"@type": "#Microsoft.VideoAnalyzer.HttpExtension",
			},
		},
		{
			name: "StructTrimmed",
			in: topology.Properties{
				"@type":        "#Microsoft.VideoAnalyzer.GrpcExtension",
				"dataTransfer": map[string]any{"mode": "sharedMemory", "stale": 1.0},
			},
			want: topology.Properties{
				"@type":        "#Microsoft.VideoAnalyzer.GrpcExtension",
				"dataTransfer": map[string]any{"mode": "sharedMemory"},
			},
		},
		{
			name: "FalseAndZeroKept",
			in: topology.Properties{
				"@type":              "#Microsoft.VideoAnalyzer.MotionDetectionProcessor",
				"outputMotionRegion": false,
				"sensitivity":        nil,
			},
			want: topology.Properties{
				"@type":              "#Microsoft.VideoAnalyzer.MotionDetectionProcessor",
				"outputMotionRegion": false,
			},
		},
		{
			name: "UnknownTypeCopied",
			in:   topology.Properties{"@type": "#Other", "anything": "goes"},
			want: topology.Properties{"@type": "#Other", "anything": "goes"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trim(reg, tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Trim() = %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestTrimDoesNotAlias(t *testing.T) {
	in := topology.Properties{
		"@type":      "#Microsoft.VideoAnalyzer.LineCrossingProcessor",
		"lines":      []any{map[string]any{"name": "l1"}},
		"irrelevant": true,
	}
	out := Trim(schema.Default(), in)
	out["lines"].([]any)[0].(map[string]any)["name"] = "changed"
	if in["lines"].([]any)[0].(map[string]any)["name"] != "l1" {
		t.Error("Trim result shares state with its input")
	}
}
