package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// defsCommand prints the node definitions table.
func (c *CLI) defsCommand() *cobra.Command {
	var kind string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "defs [type]",
		Short: "List node definitions",
		Long: `Defs lists the node types the editor offers, with their required properties
and the upstream types they accept. Given a type, full or short, it prints
that definition's properties.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := c.registry()
			if err != nil {
				return err
			}

			if len(args) == 1 {
				typ, err := resolveType(reg, args[0])
				if err != nil {
					return err
				}
				def, _ := reg.Lookup(typ)
				if jsonOut {
					return writeJSON(cmd, "", def)
				}
				printDefinition(cmd, def)
				return nil
			}

			defs := reg.Definitions()
			if kind != "" {
				k, err := topology.ParseNodeType(kind)
				if err != nil {
					return errors.Wrap(errors.ErrCodeInvalidInput, err, "--kind")
				}
				var filtered []*schema.Definition
				for _, d := range defs {
					if d.Kind == k {
						filtered = append(filtered, d)
					}
				}
				defs = filtered
			}
			if jsonOut {
				return writeJSON(cmd, "", defs)
			}
			fmt.Fprintln(cmd.OutOrStdout(), definitionsTable(defs))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list source, processor or sink definitions")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print definitions as JSON")
	return cmd
}

// printDefinition writes one definition with its nested properties.
func printDefinition(cmd *cobra.Command, def *schema.Definition) {
	w := cmd.OutOrStdout()
	printKeyValue(w, "Type", def.Type)
	printKeyValue(w, "Kind", def.Kind.String())
	if def.Description != "" {
		printKeyValue(w, "About", def.Description)
	}
	if len(def.Parents) > 0 {
		printKeyValue(w, "Parents", strings.Join(def.Parents, ", "))
	}
	fmt.Fprintln(w)
	writeProperties(cmd, def.Properties, 1)
}

func writeProperties(cmd *cobra.Command, props []schema.Property, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, p := range props {
		line := indent + StyleValue.Render(p.Name) + " " + StyleDim.Render(string(p.Kind))
		if p.Required {
			line += " " + StyleWarning.Render("required")
		}
		if len(p.Types) > 0 {
			line += " " + StyleDim.Render("("+strings.Join(p.Types, " | ")+")")
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
		writeProperties(cmd, p.Properties, depth+1)
	}
}
