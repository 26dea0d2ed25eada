package schema

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/topology"
)

//go:embed definitions.toml
var builtin []byte

// PropertyKind is the value shape of a declared property.
type PropertyKind string

const (
	KindString  PropertyKind = "string"
	KindNumber  PropertyKind = "number"
	KindInteger PropertyKind = "integer"
	KindBoolean PropertyKind = "boolean"
	KindArray   PropertyKind = "array"
	// KindObject is a nested typed object discriminated by its own "@type".
	KindObject PropertyKind = "object"
	// KindStruct is an inline object described by [Property.Properties].
	KindStruct PropertyKind = "struct"
)

func (k PropertyKind) valid() bool {
	switch k {
	case KindString, KindNumber, KindInteger, KindBoolean, KindArray, KindObject, KindStruct:
		return true
	}
	return false
}

// Property declares one field of a definition.
type Property struct {
	Name        string       `toml:"name" json:"name"`
	Kind        PropertyKind `toml:"kind" json:"kind"`
	Required    bool         `toml:"required" json:"required,omitempty"`
	Description string       `toml:"description" json:"description,omitempty"`
	// Types lists the discriminators accepted by an object property.
	Types []string `toml:"types" json:"types,omitempty"`
	// Properties declares the fields of a struct property.
	Properties []Property `toml:"properties" json:"properties,omitempty"`
}

// Definition describes one discriminator: a pipeline node type, or a nested
// object type (Kind == topology.Other) such as an endpoint or credential.
type Definition struct {
	Type        string            `toml:"type" json:"type"`
	Kind        topology.NodeType `toml:"kind" json:"kind"`
	Description string            `toml:"description" json:"description,omitempty"`
	Properties  []Property        `toml:"properties" json:"properties,omitempty"`
	// Parents restricts the node types allowed directly upstream.
	// Empty means any node with an output.
	Parents []string `toml:"parents" json:"parents,omitempty"`
}

// Property returns the declared property with the given name.
func (d *Definition) Property(name string) (Property, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// Registry is a read-only lookup table from discriminator to definition.
// It is safe for concurrent use once built.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

type file struct {
	Definitions []Definition `toml:"definitions"`
}

// New builds a registry from definitions, rejecting empty or duplicate
// discriminators and unknown property kinds.
func New(defs ...Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for i := range defs {
		d := defs[i]
		if d.Type == "" {
			return nil, errors.New(errors.ErrCodeInvalidDefinitions, "definition %d has no type", i)
		}
		if _, dup := r.defs[d.Type]; dup {
			return nil, errors.New(errors.ErrCodeInvalidDefinitions, "duplicate definition %q", d.Type)
		}
		if err := checkProperties(d.Type, d.Properties); err != nil {
			return nil, err
		}
		r.defs[d.Type] = &d
		r.order = append(r.order, d.Type)
	}
	return r, nil
}

func checkProperties(owner string, props []Property) error {
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		if p.Name == "" {
			return errors.New(errors.ErrCodeInvalidDefinitions, "%s: property without name", owner)
		}
		if seen[p.Name] {
			return errors.New(errors.ErrCodeInvalidDefinitions, "%s: duplicate property %q", owner, p.Name)
		}
		seen[p.Name] = true
		if !p.Kind.valid() {
			return errors.New(errors.ErrCodeInvalidDefinitions, "%s.%s: unknown kind %q", owner, p.Name, p.Kind)
		}
		if p.Kind == KindStruct {
			if err := checkProperties(owner+"."+p.Name, p.Properties); err != nil {
				return err
			}
		}
	}
	return nil
}

// Parse decodes a TOML definitions table.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDefinitions, err, "decode definitions")
	}
	return New(f.Definitions...)
}

// Load reads a TOML definitions table from disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "definitions %s", path)
		}
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	return Parse(data)
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("schema: builtin definitions: %v", err))
	}
	return r
})

// Default returns the built-in Video Analyzer definitions.
func Default() *Registry { return defaultRegistry() }

// Lookup returns the definition for a discriminator.
func (r *Registry) Lookup(discriminator string) (*Definition, bool) {
	d, ok := r.defs[discriminator]
	return d, ok
}

// Classify returns the node type of a discriminator, or topology.Other when
// it is unknown or names a nested object type.
func (r *Registry) Classify(discriminator string) topology.NodeType {
	if d, ok := r.defs[discriminator]; ok {
		return d.Kind
	}
	return topology.Other
}

// CanConnect reports whether a node of type parent may feed a node of type
// child directly.
func (r *Registry) CanConnect(parent, child string) bool {
	p, ok := r.defs[parent]
	if !ok || !p.Kind.HasOutput() {
		return false
	}
	c, ok := r.defs[child]
	if !ok || !c.Kind.HasInput() {
		return false
	}
	return len(c.Parents) == 0 || slices.Contains(c.Parents, parent)
}

// Types returns the discriminators of the given kind in definition order.
func (r *Registry) Types(kind topology.NodeType) []string {
	var out []string
	for _, t := range r.order {
		if r.defs[t].Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// Definitions returns all definitions in definition order.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, len(r.order))
	for i, t := range r.order {
		out[i] = r.defs[t]
	}
	return out
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.order) }
