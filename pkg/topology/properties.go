package topology

// Reserved property keys.
const (
	KeyType   = "@type"
	KeyName   = "name"
	KeyInputs = "inputs"

	keyNodeName = "nodeName"
)

// Properties is the payload describing one pipeline stage, discriminated by
// its "@type" key. Nested typed objects use the same representation.
type Properties map[string]any

// Input references an upstream node by name.
type Input struct {
	NodeName string `json:"nodeName"`
}

// Type returns the "@type" discriminator, or "" when absent.
func (p Properties) Type() string {
	s, _ := p[KeyType].(string)
	return s
}

// Name returns the node name, or "" when absent.
func (p Properties) Name() string {
	s, _ := p[KeyName].(string)
	return s
}

// SetName stores the node name.
func (p Properties) SetName(name string) { p[KeyName] = name }

// Inputs decodes the inputs list. Entries without a string nodeName are skipped.
func (p Properties) Inputs() []Input {
	var out []Input
	switch raw := p[KeyInputs].(type) {
	case []any:
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := m[keyNodeName].(string); ok {
				out = append(out, Input{NodeName: name})
			}
		}
	case []Input:
		out = append(out, raw...)
	}
	return out
}

// SetInputs replaces the inputs list. An empty list removes the key.
// Entries are stored in the JSON data model so decoded and built documents
// compare equal.
func (p Properties) SetInputs(inputs []Input) {
	if len(inputs) == 0 {
		delete(p, KeyInputs)
		return
	}
	raw := make([]any, len(inputs))
	for i, in := range inputs {
		raw[i] = map[string]any{keyNodeName: in.NodeName}
	}
	p[KeyInputs] = raw
}

// Clone returns a deep copy of the properties.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return Properties(cloneMap(p))
}

// IsEmptyValue reports whether v counts as "not filled in": nil, the empty
// string, or an object without keys.
func IsEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case Properties:
		return len(val) == 0
	}
	return false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case Properties:
		return Properties(cloneMap(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []Input:
		return append([]Input(nil), val...)
	default:
		return v
	}
}

// CloneValue deep-copies a value from the JSON data model.
func CloneValue(v any) any { return cloneValue(v) }
