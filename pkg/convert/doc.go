// Package convert maps between topology documents and editable graphs.
//
// [Flatten] turns a document into a [graph.Graph]: one node per entry of the
// sources, processors and sinks buckets, an edge per resolvable inputs
// reference, positions from a layout engine. [Collect] goes back, trimming
// every node's properties to its current definition with [Trim] and
// rebuilding inputs from the edges.
//
// For documents whose nodes only use declared fields,
//
//	g, meta, _ := convert.Flatten(ctx, doc, convert.Options{})
//	again := convert.Collect(g, meta, reg)
//
// yields a document equal to doc. Name lookups happen only here; the graph
// itself is keyed by node id.
package convert
