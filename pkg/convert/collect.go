package convert

import (
	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/observability"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// Collect builds a topology document from a graph and the metadata retained
// by [Flatten].
//
// Each node contributes its properties trimmed to its current definition,
// named after the node's display name, with inputs rebuilt from the edges
// targeting it (omitted when there are none). Nodes go to the bucket of
// their node type in graph order; nodes of type Other are skipped. A nil
// registry means schema.Default().
func Collect(g *graph.Graph, meta topology.Metadata, reg *schema.Registry) *topology.Document {
	if reg == nil {
		reg = schema.Default()
	}
	var sources, processors, sinks []topology.Properties
	for _, n := range g.Nodes() {
		props := collectNode(g, n, reg)
		switch n.Data.NodeType {
		case topology.Source:
			sources = append(sources, props)
		case topology.Processor:
			processors = append(processors, props)
		case topology.Sink:
			sinks = append(sinks, props)
		}
	}
	observability.Convert().OnCollect(meta.Name, len(sources)+len(processors)+len(sinks))
	return topology.Assemble(meta, sources, processors, sinks)
}

func collectNode(g *graph.Graph, n *graph.Node, reg *schema.Registry) topology.Properties {
	props := Trim(reg, n.Data.NodeProperties)
	props.SetName(n.Name)

	parents := g.NodeInputs(n.ID)
	inputs := make([]topology.Input, len(parents))
	for i, name := range parents {
		inputs[i] = topology.Input{NodeName: name}
	}
	props.SetInputs(inputs)
	return props
}
