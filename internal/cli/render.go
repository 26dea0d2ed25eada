package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/render"
)

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output    string
	format    string
	detailed  bool
	highlight bool
	noCache   bool
}

// renderCommand draws a topology or session as a diagram.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <topology|session>",
		Short: "Render a pipeline diagram as SVG, PNG or DOT",
		Long: `Render lays out the pipeline and draws it with Graphviz. Sources, processors
and sinks are coloured by kind; --detailed adds the node type to each label
and --highlight-errors outlines nodes with validation findings.

Without --format the format follows the --output extension, defaulting to
SVG. Rendered diagrams are cached by content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := resolveFormat(opts.format, opts.output)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			ch := c.openCache(ctx, opts.noCache)
			defer c.closeCache(ch)
			engine, err := c.engine(ch)
			if err != nil {
				return err
			}
			r, err := c.renderer(ch)
			if err != nil {
				return err
			}

			g, meta, err := c.loadGraph(ctx, cmd, args[0], engine)
			if err != nil {
				return err
			}
			ropts := render.Options{Detailed: opts.detailed, Pinned: true}
			if opts.highlight {
				if ropts.Highlight, err = c.errorNodes(g); err != nil {
					return err
				}
			}

			data, err := spin(ctx, fmt.Sprintf("Rendering %s...", meta.Name), func() ([]byte, error) {
				return r.Render(ctx, g, format, ropts)
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, opts.output, data)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: svg, png, dot")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include node types in labels")
	cmd.Flags().BoolVar(&opts.highlight, "highlight-errors", false, "outline nodes with validation findings")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the layout and render caches")
	return cmd
}

// resolveFormat picks the explicit format, else the output extension, else
// SVG.
func resolveFormat(explicit, output string) (render.Format, error) {
	if explicit != "" {
		return render.ParseFormat(explicit)
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), "."); ext != "" {
		if ext == "gv" {
			return render.FormatDOT, nil
		}
		return render.ParseFormat(ext)
	}
	return render.FormatSVG, nil
}

// errorNodes returns the ids of nodes that have validation findings.
func (c *CLI) errorNodes(g *graph.Graph) (map[string]bool, error) {
	v, _, err := c.validator()
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool)
	for _, f := range v.Validate(g) {
		if f.NodeID != "" {
			out[f.NodeID] = true
		}
	}
	return out, nil
}
