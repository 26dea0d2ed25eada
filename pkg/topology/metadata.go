package topology

import "slices"

// Metadata is everything in a document except its nodes. The editor retains
// it from the original load and re-attaches it when a graph is collected.
type Metadata struct {
	Name        string         `json:"name"`
	APIVersion  string         `json:"@apiVersion,omitempty"`
	SystemData  map[string]any `json:"systemData,omitempty"`
	Description string         `json:"description,omitempty"`
	Parameters  []Parameter    `json:"parameters,omitempty"`
}

// Metadata extracts the document metadata. The result shares no mutable
// state with d.
func (d *Document) Metadata() Metadata {
	m := Metadata{
		Name:        d.Name,
		APIVersion:  d.APIVersion,
		Description: d.Properties.Description,
		Parameters:  slices.Clone(d.Properties.Parameters),
	}
	if d.SystemData != nil {
		m.SystemData = cloneMap(d.SystemData)
	}
	return m
}

// Assemble builds a document from retained metadata and node buckets.
// systemData and @apiVersion are attached only when present in meta.
func Assemble(meta Metadata, sources, processors, sinks []Properties) *Document {
	doc := &Document{
		Name: meta.Name,
		Properties: Body{
			Description: meta.Description,
			Parameters:  slices.Clone(meta.Parameters),
			Sources:     sources,
			Processors:  processors,
			Sinks:       sinks,
		},
	}
	if meta.SystemData != nil {
		doc.SystemData = cloneMap(meta.SystemData)
	}
	if meta.APIVersion != "" {
		doc.APIVersion = meta.APIVersion
	}
	return doc
}
