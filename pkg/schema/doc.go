// Package schema is the node and property directory consumed by the
// converter and the validator.
//
// A [Registry] maps a "@type" discriminator to a [Definition]: the node kind
// (source, processor, sink, or a nested object type), the declared
// properties with their required flags, and the node types permitted
// directly upstream. Definition tables are TOML documents, normally produced
// offline from the pipeline runtime's API schema:
//
//	[[definitions]]
//	type = "#Microsoft.VideoAnalyzer.RtspSource"
//	kind = "source"
//
//	  [[definitions.properties]]
//	  name = "endpoint"
//	  kind = "object"
//	  required = true
//	  types = ["#Microsoft.VideoAnalyzer.UnsecuredEndpoint"]
//
// [Default] returns the built-in Azure Video Analyzer table embedded in the
// binary. [Load] and [Parse] read others.
package schema
