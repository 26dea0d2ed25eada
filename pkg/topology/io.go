package topology

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/topoedit/pkg/errors"
)

// =============================================================================
// Serialization API
// =============================================================================

// Read decodes a JSON topology document.
func Read(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode topology")
	}
	if err := doc.check(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidTopology, err, "topology %q", doc.Name)
	}
	return &doc, nil
}

// Unmarshal decodes a JSON topology document from bytes.
func Unmarshal(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data))
}

// ReadYAML decodes a YAML topology document.
func ReadYAML(r io.Reader) (*Document, error) {
	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode topology yaml")
	}
	data, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "normalize topology yaml")
	}
	return Unmarshal(data)
}

// ReadFile reads a topology from disk. YAML is used for .yaml and .yml files.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
		}
		return nil, err
	}
	defer f.Close()

	if isYAML(path) {
		return ReadYAML(f)
	}
	return Read(f)
}

// Write encodes a document as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode topology")
	}
	return nil
}

// Marshal encodes a document as indented JSON bytes.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteYAML encodes a document as YAML.
func WriteYAML(w io.Writer, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode topology")
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode topology")
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode topology yaml")
	}
	return enc.Close()
}

// WriteFile writes a document to disk with 0644 permissions.
func WriteFile(doc *Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		return WriteYAML(f, doc)
	}
	return Write(f, doc)
}

// =============================================================================
// Internal Helpers
// =============================================================================

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// normalizeYAML converts yaml.v3 output into values encoding/json accepts.
// Mappings with non-string keys are stringified.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmtKey(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}

func fmtKey(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	data, _ := json.Marshal(k)
	return string(data)
}
