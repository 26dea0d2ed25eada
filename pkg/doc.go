// Package pkg holds the topoedit libraries: conversion between pipeline
// topology documents and editor graphs, validation, layout, rendering and
// storage.
//
// # Overview
//
// A topology document lists sources, processors and sinks, each naming its
// upstream nodes in an inputs array. An editor works on a graph of nodes
// and port-to-port edges instead. The packages are organized around that
// round trip:
//
//  1. [topology] - Document types, JSON and YAML codecs
//  2. [graph] - Node and edge store with adjacency queries
//  3. [convert] - Flatten (document to graph) and Collect (graph to document)
//  4. [schema] - Node definitions: kinds, properties, accepted parents
//  5. [validate] - Structural and property checks over a graph
//  6. [session] - Editing operations and persisted edit sessions
//
// Supporting packages:
//
//   - [layout] - Node placement via Graphviz dot or a built-in layered engine
//   - [render] - DOT, SVG and PNG diagrams
//   - [cache] - File and Redis caches for layouts and diagrams
//   - [store] - File and MongoDB stores for saved topologies
//   - [api] - HTTP API over the above
//   - [observability] - Hooks for metrics and tracing
//   - [errors] - Coded errors shared by the CLI and the API
//
// # Data Flow
//
//	topology document (JSON/YAML)
//	         ↓
//	    [convert.Flatten] (nodes, edges, [layout] positions)
//	         ↓
//	    [graph.Graph] ← [session] edits
//	         ↓
//	    [validate] findings, [render] diagrams
//	         ↓
//	    [convert.Collect] → topology document → [store]
//
// # Quick Start
//
//	doc, err := topology.Unmarshal(data)
//	if err != nil {
//	    return err
//	}
//	g, meta, err := convert.Flatten(ctx, doc, convert.Options{})
//	if err != nil {
//	    return err
//	}
//	for _, finding := range validate.New(nil, validate.DefaultRules()).Validate(g) {
//	    fmt.Println(finding.Kind, finding.NodeName, finding.Message)
//	}
//	out := convert.Collect(g, meta, nil)
//
// [topology]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/topology
// [graph]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/graph
// [convert]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/convert
// [schema]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/schema
// [validate]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/validate
// [session]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/session
// [layout]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/layout
// [render]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/store
// [api]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/api
// [observability]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/topoedit/pkg/errors
package pkg
