// Package topology defines the persisted form of a media pipeline: the
// Topology Document.
//
// # Overview
//
// A topology is a flat description of a processing graph. Nodes are grouped
// into three buckets (sources, processors, sinks) and wired together by name:
// each node lists the upstream nodes it consumes in its inputs.
//
//	{
//	  "name": "CVR",
//	  "properties": {
//	    "parameters": [{"name": "rtspUrl", "type": "String"}],
//	    "sources": [{"@type": "#Microsoft.VideoAnalyzer.RtspSource", "name": "rtsp"}],
//	    "sinks": [{
//	      "@type": "#Microsoft.VideoAnalyzer.VideoSink",
//	      "name": "video",
//	      "inputs": [{"nodeName": "rtsp"}]
//	    }]
//	  }
//	}
//
// The document is the canonical form. Edges only exist implicitly through
// inputs; the editable node/edge projection lives in the graph package.
//
// # Node Properties
//
// [Properties] is a discriminated property bag. The "@type" key selects the
// node's definition in the schema registry, and the remaining keys are the
// fields that definition declares (or stale ones the editor kept around).
// Nested objects may carry their own "@type". Values use the JSON data model:
// map[string]any, []any, string, float64, bool and nil.
//
// # Encoding
//
// [Read] and [Write] handle JSON. [ReadFile] and [WriteFile] pick YAML for
// .yaml and .yml paths and JSON otherwise. YAML input is normalized to the
// JSON data model so both encodings produce identical documents.
package topology
