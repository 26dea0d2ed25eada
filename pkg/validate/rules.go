package validate

import (
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/topoedit/pkg/errors"
)

// DocsLimitations documents the structural limits of Video Analyzer
// pipeline topologies.
const DocsLimitations = "https://learn.microsoft.com/azure/azure-video-analyzer/video-analyzer-docs/edge/quotas-limitations"

// Node type discriminators used by the default rules.
const (
	TypeRtspSource      = "#Microsoft.VideoAnalyzer.RtspSource"
	TypeMotionDetection = "#Microsoft.VideoAnalyzer.MotionDetectionProcessor"
	TypeSignalGate      = "#Microsoft.VideoAnalyzer.SignalGateProcessor"
	TypeObjectTracking  = "#Microsoft.VideoAnalyzer.ObjectTrackingProcessor"
	TypeLineCrossing    = "#Microsoft.VideoAnalyzer.LineCrossingProcessor"
	TypeHttpExtension   = "#Microsoft.VideoAnalyzer.HttpExtension"
	TypeGrpcExtension   = "#Microsoft.VideoAnalyzer.GrpcExtension"
	TypeFileSink        = "#Microsoft.VideoAnalyzer.FileSink"
	TypeVideoSink       = "#Microsoft.VideoAnalyzer.VideoSink"
)

// CountRule allows at most one node of Type per graph.
type CountRule struct {
	Type string `toml:"type" json:"type"`
	Docs string `toml:"docs" json:"docs,omitempty"`
}

// RequiredRule demands that every node of Type has a direct parent whose
// type is one of Parents.
type RequiredRule struct {
	Type    string   `toml:"type" json:"type"`
	Parents []string `toml:"parents" json:"parents"`
	Docs    string   `toml:"docs" json:"docs,omitempty"`
}

// ProhibitedRule forbids a node of Type below a node of type Parent.
// Whether "below" means directly or at any distance depends on the table
// the rule sits in.
type ProhibitedRule struct {
	Type   string `toml:"type" json:"type"`
	Parent string `toml:"parent" json:"parent"`
	Docs   string `toml:"docs" json:"docs,omitempty"`
}

// Rules is the structural rule table of a pipeline runtime. A Rules value is
// never modified by this package.
type Rules struct {
	OnePerGraph                  []CountRule      `toml:"one_per_graph" json:"onePerGraph,omitempty"`
	RequiredDirectlyDownstream   []RequiredRule   `toml:"required_directly_downstream" json:"requiredDirectlyDownstream,omitempty"`
	ProhibitedDirectlyDownstream []ProhibitedRule `toml:"prohibited_directly_downstream" json:"prohibitedDirectlyDownstream,omitempty"`
	ProhibitedAnyDownstream      []ProhibitedRule `toml:"prohibited_any_downstream" json:"prohibitedAnyDownstream,omitempty"`
}

// DefaultRules returns the Azure Video Analyzer edge rules. Each call
// returns a fresh table.
func DefaultRules() Rules {
	return Rules{
		OnePerGraph: []CountRule{
			{Type: TypeRtspSource, Docs: DocsLimitations},
			{Type: TypeMotionDetection, Docs: DocsLimitations},
		},
		RequiredDirectlyDownstream: []RequiredRule{
			{Type: TypeMotionDetection, Parents: []string{TypeRtspSource}, Docs: DocsLimitations},
			{Type: TypeSignalGate, Parents: []string{TypeRtspSource}, Docs: DocsLimitations},
			{Type: TypeObjectTracking, Parents: []string{TypeHttpExtension, TypeGrpcExtension}, Docs: DocsLimitations},
			{Type: TypeLineCrossing, Parents: []string{TypeObjectTracking}, Docs: DocsLimitations},
		},
		// Pairs covered by ProhibitedAnyDownstream are left out here so a
		// direct violation is reported once.
		ProhibitedDirectlyDownstream: []ProhibitedRule{
			{Type: TypeFileSink, Parent: TypeMotionDetection, Docs: DocsLimitations},
			{Type: TypeVideoSink, Parent: TypeMotionDetection, Docs: DocsLimitations},
		},
		ProhibitedAnyDownstream: []ProhibitedRule{
			{Type: TypeMotionDetection, Parent: TypeHttpExtension, Docs: DocsLimitations},
			{Type: TypeMotionDetection, Parent: TypeGrpcExtension, Docs: DocsLimitations},
			{Type: TypeFileSink, Parent: TypeHttpExtension, Docs: DocsLimitations},
			{Type: TypeFileSink, Parent: TypeGrpcExtension, Docs: DocsLimitations},
			{Type: TypeVideoSink, Parent: TypeHttpExtension, Docs: DocsLimitations},
			{Type: TypeVideoSink, Parent: TypeGrpcExtension, Docs: DocsLimitations},
		},
	}
}

// Clone returns a deep copy of the table.
func (r Rules) Clone() Rules {
	out := Rules{
		OnePerGraph:                  slices.Clone(r.OnePerGraph),
		RequiredDirectlyDownstream:   slices.Clone(r.RequiredDirectlyDownstream),
		ProhibitedDirectlyDownstream: slices.Clone(r.ProhibitedDirectlyDownstream),
		ProhibitedAnyDownstream:      slices.Clone(r.ProhibitedAnyDownstream),
	}
	for i := range out.RequiredDirectlyDownstream {
		out.RequiredDirectlyDownstream[i].Parents = slices.Clone(out.RequiredDirectlyDownstream[i].Parents)
	}
	return out
}

// Len returns the number of rules in the table.
func (r Rules) Len() int {
	return len(r.OnePerGraph) + len(r.RequiredDirectlyDownstream) +
		len(r.ProhibitedDirectlyDownstream) + len(r.ProhibitedAnyDownstream)
}

func (r Rules) check() error {
	for _, c := range r.OnePerGraph {
		if c.Type == "" {
			return fmt.Errorf("one_per_graph rule without type")
		}
	}
	for _, q := range r.RequiredDirectlyDownstream {
		if q.Type == "" || len(q.Parents) == 0 {
			return fmt.Errorf("required_directly_downstream rule %q needs a type and parents", q.Type)
		}
	}
	for _, table := range [][]ProhibitedRule{r.ProhibitedDirectlyDownstream, r.ProhibitedAnyDownstream} {
		for _, p := range table {
			if p.Type == "" || p.Parent == "" {
				return fmt.Errorf("prohibited rule %q needs a type and a parent", p.Type)
			}
		}
	}
	return nil
}

// ParseRules decodes a TOML rule table:
//
//	[[one_per_graph]]
//	type = "#Microsoft.VideoAnalyzer.RtspSource"
//
//	[[required_directly_downstream]]
//	type = "#Microsoft.VideoAnalyzer.MotionDetectionProcessor"
//	parents = ["#Microsoft.VideoAnalyzer.RtspSource"]
//
//	[[prohibited_any_downstream]]
//	type = "#Microsoft.VideoAnalyzer.FileSink"
//	parent = "#Microsoft.VideoAnalyzer.HttpExtension"
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := toml.Unmarshal(data, &r); err != nil {
		return Rules{}, errors.Wrap(errors.ErrCodeInvalidDefinitions, err, "decode rules")
	}
	if err := r.check(); err != nil {
		return Rules{}, errors.Wrap(errors.ErrCodeInvalidDefinitions, err, "rules")
	}
	return r, nil
}

// LoadRules reads a TOML rule table from disk.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Rules{}, errors.Wrap(errors.ErrCodeNotFound, err, "rules %s", path)
		}
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}
