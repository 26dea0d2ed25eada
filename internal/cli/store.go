package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/convert"
	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/store"
)

// storeCommand manages topologies kept in the configured store.
func (c *CLI) storeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage saved topologies",
		Long: `Store lists, reads, writes and deletes topology documents in the configured
backend: a directory of JSON files, or a MongoDB collection when
store.backend = "mongo".`,
	}

	cmd.AddCommand(c.storeListCommand())
	cmd.AddCommand(c.storeGetCommand())
	cmd.AddCommand(c.storePutCommand())
	cmd.AddCommand(c.storeDeleteCommand())
	return cmd
}

func (c *CLI) storeListCommand() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved topologies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer c.closeStore(ctx, st)

			entries, err := st.List(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				if entries == nil {
					entries = []store.Entry{}
				}
				return writeJSON(cmd, "", entries)
			}
			if len(entries) == 0 {
				printInfo("No saved topologies")
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.Name, strconv.Itoa(e.Nodes), e.UpdatedAt.Local().Format(time.DateTime), e.Description}
			}
			t := newTable("Name", "Nodes", "Updated", "Description").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					switch {
					case row == headerRow:
						return styleHeader
					case col == 0:
						return StyleHighlight
					case col == 3:
						return StyleDim
					}
					return lipgloss.NewStyle()
				})
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print entries as JSON")
	return cmd
}

func (c *CLI) storeGetCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Print a saved topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer c.closeStore(ctx, st)

			doc, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeDocument(cmd, output, doc)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func (c *CLI) storePutCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "put <topology>",
		Short: "Validate a topology document and save it under its name",
		Long: `Put flattens the document, validates it and saves the collected form, so
inputs naming missing nodes and undeclared properties are dropped. Documents
with findings are refused unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, reg, err := c.validator()
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			g, meta, err := convert.Flatten(ctx, doc, convert.Options{Logger: c.Logger})
			if err != nil {
				return err
			}
			if findings := v.Validate(g); len(findings) > 0 {
				if !force {
					fmt.Fprintln(cmd.OutOrStdout(), validationTable(findings))
					return errors.New(errors.ErrCodeValidationFailed, "%s: %d findings; fix them or pass --force", meta.Name, len(findings))
				}
				printWarning("Ignoring %d findings", len(findings))
			}

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer c.closeStore(ctx, st)
			saved := convert.Collect(g, meta, reg)
			if err := st.Put(ctx, saved); err != nil {
				return err
			}
			printSuccess("Saved %s (%d nodes)", StyleHighlight.Render(saved.Name), saved.NodeCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "save despite validation findings")
	return cmd
}

func (c *CLI) storeDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer c.closeStore(ctx, st)
			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted %s", args[0])
			return nil
		},
	}
}
