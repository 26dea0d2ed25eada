// Package graph is the editable node/edge projection of a topology.
//
// A [Graph] holds pipeline nodes with synthesized ports and the edges
// between them, indexed by node id. It is what the editor mutates between
// loading and saving a topology; the persisted form is always the topology
// document (see package convert for the two directions).
//
// # Ports
//
// Each node carries ports according to its kind:
//
//	Source     one output port
//	Processor  one input port, one output port
//	Sink       one input port
//	Other      no ports
//
// A port is either an input or an output; [Port.IsInputDisabled] and
// [Port.IsOutputDisabled] are never both false. At most one edge may join a
// given (output port, input port) pair.
//
// # Queries
//
// Adjacency queries are pure reads keyed by node id:
//
//	g.DirectParents(id)  // nodes with an edge into id
//	g.AllParents(id)     // transitive closure upward, cycle-safe
//	g.NodeInputs(id)     // names of the direct parents in edge order
//	g.Connected()        // undirected reachability from any node
//
// [Graph.NodeByName] exists for the conversion boundary, where inputs are
// still references by name.
//
// # Serialization
//
// Graphs encode to JSON as:
//
//	{
//	  "nodes": [{"id": "…", "name": "cam", "data": {...}, "ports": [...], "x": 0, "y": 0}],
//	  "edges": [{"id": "…", "source": "…", "target": "…", "sourcePortId": "…", "targetPortId": "…"}]
//	}
//
// Decoding rebuilds the adjacency indices and rejects edges whose endpoints
// do not exist.
//
// A Graph is not safe for concurrent use.
package graph
