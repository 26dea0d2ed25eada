package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/convert"
	"github.com/matzehuels/topoedit/pkg/session"
)

// flattenCommand converts a topology document into a session file.
func (c *CLI) flattenCommand() *cobra.Command {
	var output string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "flatten <topology>",
		Short: "Convert a topology document into a graph session",
		Long: `Flatten builds the editor graph of a topology document: one node per source,
processor and sink, one edge per inputs entry, laid out top to bottom. The
result is a session file {id, meta, graph} that collect turns back into a
document.

Inputs that name missing nodes are dropped, so the node loads disconnected.
Use - to read the document from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ch := c.openCache(ctx, noCache)
			defer c.closeCache(ch)
			engine, err := c.engine(ch)
			if err != nil {
				return err
			}

			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			prog := newProgress(c.Logger)
			g, meta, err := convert.Flatten(ctx, doc, convert.Options{Engine: engine, Logger: c.Logger})
			if err != nil {
				return err
			}
			prog.done("flattened", "nodes", g.NodeCount(), "edges", g.EdgeCount())

			return writeJSON(cmd, output, session.New(meta, g))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the layout cache")
	return cmd
}

// collectCommand converts a session file back into a topology document.
func (c *CLI) collectCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "collect <session>",
		Short: "Convert a graph session back into a topology document",
		Long: `Collect rebuilds the topology document from a session: nodes are bucketed by
kind, inputs are derived from the edges, and properties not declared by the
node's definition are dropped. An output path ending in .yaml or .yml writes
YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := c.registry()
			if err != nil {
				return err
			}
			g, meta, err := c.loadGraph(cmd.Context(), cmd, args[0], nil)
			if err != nil {
				return err
			}
			return writeDocument(cmd, output, convert.Collect(g, meta, reg))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}
