package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/validate"
)

// validateOpts holds the flags of the validate command.
type validateOpts struct {
	serverErrors []string
	interactive  bool
	jsonOut      bool
}

// validateCommand checks a topology or session against the definitions and
// rules.
func (c *CLI) validateCommand() *cobra.Command {
	var opts validateOpts

	cmd := &cobra.Command{
		Use:   "validate <topology|session>",
		Short: "Check a pipeline against node definitions and structural rules",
		Long: `Validate reports every finding at once: disconnected nodes, missing required
properties (including nested endpoint and credential fields), node types used
more than once, and required or prohibited upstream nodes.

Messages from a remote validation pass can be merged with --server-error. The
command exits non-zero when anything is found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := c.validator()
			if err != nil {
				return err
			}
			g, meta, err := c.loadGraph(cmd.Context(), cmd, args[0], nil)
			if err != nil {
				return err
			}

			findings := v.Validate(g, validate.ServerErrors(opts.serverErrors...)...)
			c.Logger.Debug("validated", "nodes", g.NodeCount(), "findings", len(findings))

			switch {
			case opts.jsonOut:
				if findings == nil {
					findings = []validate.Error{}
				}
				if err := writeJSON(cmd, "", findings); err != nil {
					return err
				}
			case opts.interactive:
				title := fmt.Sprintf("%s: %d findings", meta.Name, len(findings))
				p := tea.NewProgram(NewFindingsModel(title, findings), tea.WithContext(cmd.Context()))
				if _, err := p.Run(); err != nil {
					return err
				}
			case len(findings) == 0:
				printSuccess("%s is valid (%d nodes)", meta.Name, g.NodeCount())
			default:
				fmt.Fprintln(cmd.OutOrStdout(), validationTable(findings))
			}

			if len(findings) > 0 {
				return errors.New(errors.ErrCodeValidationFailed, "%s: %d findings", meta.Name, len(findings))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.serverErrors, "server-error", nil, "append a remote validation message (repeatable)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse findings interactively")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print findings as JSON")
	cmd.MarkFlagsMutuallyExclusive("interactive", "json")
	return cmd
}
