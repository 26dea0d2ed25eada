package convert

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/layout"
	"github.com/matzehuels/topoedit/pkg/observability"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// Options configures [Flatten].
type Options struct {
	// Engine positions the flattened nodes. Defaults to layout.Layered.
	Engine layout.Engine
	// Logger receives debug records for tolerated inconsistencies such as
	// dangling input references. Defaults to log.Default().
	Logger *log.Logger
}

// Flatten builds a graph from a topology document and returns it together
// with the document metadata needed to collect it again.
//
// Nodes are created bucket by bucket (sources, processors, sinks) with
// ports for the bucket's kind and fresh ids. Each inputs entry becomes an
// edge from the referenced node's output port to the node's input port.
// References that cannot be resolved are skipped, so a misspelt input loads
// as a disconnected node. Finally the layout engine positions the nodes.
//
// Apart from ids, the result is a deterministic function of doc. Only a
// layout failure is reported as an error.
func Flatten(ctx context.Context, doc *topology.Document, opts Options) (*graph.Graph, topology.Metadata, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	engine := opts.Engine
	if engine == nil {
		engine = layout.Layered{}
	}
	start := time.Now()

	g := graph.New()
	byName := make(map[string]string) // node name -> node id, conversion only

	for _, kind := range topology.NodeTypes {
		for _, props := range doc.Bucket(kind) {
			name := props.Name()
			n := graph.NewNode(name, kind, props.Clone())
			if err := g.AddNode(n); err != nil {
				// uuid collision; cannot happen with v4 ids
				return nil, topology.Metadata{}, err
			}
			if _, dup := byName[name]; dup {
				logger.Debug("duplicate node name; inputs resolve to the first", "name", name)
				continue
			}
			byName[name] = n.ID
		}
	}

	for _, n := range g.Nodes() {
		for _, in := range n.Data.NodeProperties.Inputs() {
			linkInput(g, byName, n, in.NodeName, logger)
		}
	}

	if err := layout.Apply(ctx, engine, g); err != nil {
		observability.Convert().OnFlatten(ctx, doc.Name, 0, 0, time.Since(start), err)
		return nil, topology.Metadata{}, err
	}
	observability.Convert().OnFlatten(ctx, doc.Name, g.NodeCount(), g.EdgeCount(), time.Since(start), nil)
	return g, doc.Metadata(), nil
}

// linkInput adds the edge implied by one inputs entry of n, or logs why it
// cannot exist.
func linkInput(g *graph.Graph, byName map[string]string, n *graph.Node, ref string, logger *log.Logger) {
	parentID, ok := byName[ref]
	if !ok {
		logger.Debug("dropping dangling input reference", "node", n.Name, "input", ref)
		return
	}
	out, ok := g.Port(parentID, false)
	if !ok {
		logger.Debug("input references a node without output", "node", n.Name, "input", ref)
		return
	}
	in, ok := g.Port(n.ID, true)
	if !ok {
		logger.Debug("node without input port declares inputs", "node", n.Name, "input", ref)
		return
	}
	err := g.AddEdge(graph.Edge{
		ID:           uuid.NewString(),
		Source:       parentID,
		Target:       n.ID,
		SourcePortID: out.ID,
		TargetPortID: in.ID,
	})
	if err != nil {
		logger.Debug("skipping input", "node", n.Name, "input", ref, "err", err)
	}
}
