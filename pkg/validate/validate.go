package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/observability"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// Kind classifies a validation finding.
type Kind string

const (
	NotConnected                 Kind = "NotConnected"
	MissingField                 Kind = "MissingField"
	MissingProperty              Kind = "MissingProperty"
	NodeCountLimit               Kind = "NodeCountLimit"
	RequiredDirectlyDownstream   Kind = "RequiredDirectlyDownstream"
	ProhibitedDirectlyDownstream Kind = "ProhibitedDirectlyDownstream"
	ProhibitedAnyDownstream      Kind = "ProhibitedAnyDownstream"
	ServerError                  Kind = "ServerError"
)

// Error is one validation finding. Findings are advisory data, not Go errors.
type Error struct {
	Kind Kind `json:"kind"`
	// NodeName is the display name of the offending node, if any.
	NodeName string `json:"nodeName,omitempty"`
	NodeID   string `json:"nodeId,omitempty"`
	// Type is the discriminator a rule is about.
	Type string `json:"type,omitempty"`
	// Path holds the field names from the node root to a missing property.
	Path []string `json:"path,omitempty"`
	// Parents lists the parent types a required or prohibited rule names.
	Parents []string `json:"parents,omitempty"`
	Message string   `json:"message"`
	Docs    string   `json:"docs,omitempty"`
}

func (e Error) String() string {
	if e.NodeName != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.NodeName, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ServerErrors wraps messages reported by a remote validation pass.
func ServerErrors(messages ...string) []Error {
	out := make([]Error, 0, len(messages))
	for _, m := range messages {
		out = append(out, Error{Kind: ServerError, Message: m})
	}
	return out
}

// Validator checks graphs against a definitions registry and a rule table.
type Validator struct {
	reg   *schema.Registry
	rules Rules
}

// New returns a validator. A nil registry means schema.Default(). The rule
// table is copied.
func New(reg *schema.Registry, rules Rules) *Validator {
	if reg == nil {
		reg = schema.Default()
	}
	return &Validator{reg: reg, rules: rules.Clone()}
}

// Rules returns a copy of the validator's rule table.
func (v *Validator) Rules() Rules { return v.rules.Clone() }

// Validate runs every check over g and returns all findings. Checks never
// short-circuit. External findings are appended last.
func (v *Validator) Validate(g *graph.Graph, external ...Error) []Error {
	start := time.Now()
	var errs []Error
	if !g.Connected() {
		errs = append(errs, Error{
			Kind:    NotConnected,
			Message: "not every node is connected to the rest of the pipeline",
		})
	}
	errs = append(errs, v.missing(g)...)
	errs = append(errs, v.counts(g)...)
	errs = append(errs, v.required(g)...)
	errs = append(errs, v.prohibited(g, v.rules.ProhibitedDirectlyDownstream, ProhibitedDirectlyDownstream)...)
	errs = append(errs, v.prohibited(g, v.rules.ProhibitedAnyDownstream, ProhibitedAnyDownstream)...)
	errs = append(errs, external...)
	observability.Validate().OnValidate(g.NodeCount(), len(errs), time.Since(start))
	return errs
}

// Validate checks g with a throwaway validator.
func Validate(g *graph.Graph, reg *schema.Registry, rules Rules, external ...Error) []Error {
	return New(reg, rules).Validate(g, external...)
}

// =============================================================================
// Required properties
// =============================================================================

func (v *Validator) missing(g *graph.Graph) []Error {
	var errs []Error
	for _, n := range g.Nodes() {
		def, ok := v.reg.Lookup(n.Type())
		if !ok {
			continue
		}
		errs = v.walk(errs, n, n.Data.NodeProperties, def.Properties, nil)
	}
	return errs
}

func (v *Validator) walk(errs []Error, n *graph.Node, values map[string]any, declared []schema.Property, path []string) []Error {
	for _, p := range declared {
		at := append(append([]string(nil), path...), p.Name)
		val := values[p.Name]
		if topology.IsEmptyValue(val) {
			if p.Required {
				errs = append(errs, missingError(n, at))
			}
			continue
		}
		m, ok := asMap(val)
		if !ok {
			continue
		}
		switch p.Kind {
		case schema.KindObject:
			t, _ := m[topology.KeyType].(string)
			if def, ok := v.reg.Lookup(t); ok {
				errs = v.walk(errs, n, m, def.Properties, at)
			}
		case schema.KindStruct:
			errs = v.walk(errs, n, m, p.Properties, at)
		}
	}
	return errs
}

func missingError(n *graph.Node, path []string) Error {
	kind := MissingField
	if len(path) > 1 {
		kind = MissingProperty
	}
	return Error{
		Kind:     kind,
		NodeName: n.Name,
		NodeID:   n.ID,
		Type:     n.Type(),
		Path:     path,
		Message:  fmt.Sprintf("required property %q is missing", strings.Join(path, ".")),
	}
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case topology.Properties:
		return m, true
	}
	return nil, false
}

// =============================================================================
// Structural rules
// =============================================================================

func (v *Validator) counts(g *graph.Graph) []Error {
	if len(v.rules.OnePerGraph) == 0 {
		return nil
	}
	count := make(map[string]int)
	for _, n := range g.Nodes() {
		count[n.Type()]++
	}
	var errs []Error
	for _, r := range v.rules.OnePerGraph {
		if count[r.Type] > 1 {
			errs = append(errs, Error{
				Kind:    NodeCountLimit,
				Type:    r.Type,
				Message: fmt.Sprintf("only one %s is allowed per pipeline, found %d", shortType(r.Type), count[r.Type]),
				Docs:    r.Docs,
			})
		}
	}
	return errs
}

func (v *Validator) required(g *graph.Graph) []Error {
	var errs []Error
	for _, r := range v.rules.RequiredDirectlyDownstream {
		for _, n := range g.Nodes() {
			if n.Type() != r.Type || hasParentType(g.DirectParents(n.ID), r.Parents...) {
				continue
			}
			names := make([]string, len(r.Parents))
			for i, p := range r.Parents {
				names[i] = shortType(p)
			}
			errs = append(errs, Error{
				Kind:     RequiredDirectlyDownstream,
				NodeName: n.Name,
				NodeID:   n.ID,
				Type:     r.Type,
				Parents:  append([]string(nil), r.Parents...),
				Message:  fmt.Sprintf("must be directly downstream of %s", strings.Join(names, " or ")),
				Docs:     r.Docs,
			})
		}
	}
	return errs
}

func (v *Validator) prohibited(g *graph.Graph, rules []ProhibitedRule, kind Kind) []Error {
	var errs []Error
	for _, r := range rules {
		for _, n := range g.Nodes() {
			if n.Type() != r.Type {
				continue
			}
			parents, where := g.DirectParents(n.ID), "directly downstream"
			if kind == ProhibitedAnyDownstream {
				parents, where = g.AllParents(n.ID), "downstream"
			}
			if !hasParentType(parents, r.Parent) {
				continue
			}
			errs = append(errs, Error{
				Kind:     kind,
				NodeName: n.Name,
				NodeID:   n.ID,
				Type:     r.Type,
				Parents:  []string{r.Parent},
				Message:  fmt.Sprintf("cannot be %s of %s", where, shortType(r.Parent)),
				Docs:     r.Docs,
			})
		}
	}
	return errs
}

func hasParentType(parents []*graph.Node, types ...string) bool {
	for _, p := range parents {
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
	}
	return false
}

// shortType strips the namespace of a discriminator:
// "#Microsoft.VideoAnalyzer.FileSink" becomes "FileSink".
func shortType(t string) string {
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		return t[i+1:]
	}
	return strings.TrimPrefix(t, "#")
}
