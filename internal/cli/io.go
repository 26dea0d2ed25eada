package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/convert"
	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/layout"
	"github.com/matzehuels/topoedit/pkg/session"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// stdinPath names standard input in file arguments.
const stdinPath = "-"

// readInput returns the bytes of path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == stdinPath {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	return data, err
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// readDocument reads a topology document in JSON, or YAML by extension.
func readDocument(cmd *cobra.Command, path string) (*topology.Document, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		return topology.ReadYAML(bytes.NewReader(data))
	}
	return topology.Unmarshal(data)
}

// loadGraph reads either a session file or a topology document. Documents
// are flattened with engine.
func (c *CLI) loadGraph(ctx context.Context, cmd *cobra.Command, path string, engine layout.Engine) (*graph.Graph, topology.Metadata, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, topology.Metadata{}, err
	}

	if !isYAML(path) {
		var probe struct {
			Graph json.RawMessage `json:"graph"`
		}
		if json.Unmarshal(data, &probe) == nil && len(probe.Graph) > 0 {
			var sess session.Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return nil, topology.Metadata{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode session %s", path)
			}
			c.Logger.Debug("read session", "path", path, "nodes", sess.Graph.NodeCount())
			return sess.Graph, sess.Meta, nil
		}
	}

	var doc *topology.Document
	if isYAML(path) {
		doc, err = topology.ReadYAML(bytes.NewReader(data))
	} else {
		doc, err = topology.Unmarshal(data)
	}
	if err != nil {
		return nil, topology.Metadata{}, err
	}
	return convert.Flatten(ctx, doc, convert.Options{Engine: engine, Logger: c.Logger})
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == stdinPath {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printFile(path)
	return nil
}

// writeDocument encodes doc as YAML when path ends in .yaml or .yml and as
// JSON otherwise.
func writeDocument(cmd *cobra.Command, path string, doc *topology.Document) error {
	var buf bytes.Buffer
	var err error
	if isYAML(path) {
		err = topology.WriteYAML(&buf, doc)
	} else {
		err = topology.Write(&buf, doc)
	}
	if err != nil {
		return err
	}
	return writeOutput(cmd, path, buf.Bytes())
}

// writeJSON writes v as indented JSON.
func writeJSON(cmd *cobra.Command, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeOutput(cmd, path, append(data, '\n'))
}
