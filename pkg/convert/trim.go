package convert

import (
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// Trim returns a copy of props holding only "@type" and the fields its
// definition declares. Values left over from an earlier type selection are
// dropped.
//
//   - object properties are kept only when non-empty and carrying their own
//     "@type", and are trimmed against that type's definition
//   - struct properties are trimmed against their declared sub-properties
//     and dropped when nothing remains
//   - other values are kept unless nil
//
// Properties whose "@type" is unknown to reg are copied unchanged.
func Trim(reg *schema.Registry, props topology.Properties) topology.Properties {
	def, ok := reg.Lookup(props.Type())
	if !ok {
		out := props.Clone()
		if out == nil {
			out = topology.Properties{}
		}
		return out
	}
	out := topology.Properties{topology.KeyType: props.Type()}
	trimFields(reg, out, props, def.Properties)
	return out
}

func trimFields(reg *schema.Registry, dst, src map[string]any, declared []schema.Property) {
	for _, p := range declared {
		v, ok := src[p.Name]
		if !ok {
			continue
		}
		if kept, ok := trimValue(reg, p, v); ok {
			dst[p.Name] = kept
		}
	}
}

func trimValue(reg *schema.Registry, p schema.Property, v any) (any, bool) {
	switch p.Kind {
	case schema.KindObject:
		m, ok := asMap(v)
		if !ok || len(m) == 0 {
			return nil, false
		}
		if t, _ := m[topology.KeyType].(string); t == "" {
			return nil, false
		}
		return map[string]any(Trim(reg, m)), true

	case schema.KindStruct:
		m, ok := asMap(v)
		if !ok || len(m) == 0 {
			return nil, false
		}
		if len(p.Properties) == 0 {
			return topology.CloneValue(m), true
		}
		sub := make(map[string]any)
		trimFields(reg, sub, m, p.Properties)
		if len(sub) == 0 {
			return nil, false
		}
		return sub, true

	default:
		if v == nil {
			return nil, false
		}
		return topology.CloneValue(v), true
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
