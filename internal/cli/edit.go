package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/topoedit/pkg/convert"
	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/render"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/session"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// editCommand groups the session editing subcommands.
func (c *CLI) editCommand() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit a pipeline graph across invocations",
		Long: `Edit keeps a graph in a session file between commands, the way the canvas
keeps it between clicks:

  topoedit edit open pipeline.json
  topoedit edit add FileSink recorder
  topoedit edit connect signalGate recorder
  topoedit edit set recorder baseDirectoryPath /var/media
  topoedit edit export -o pipeline.json

Commands act on --session, or on the most recently changed session. Nodes are
named by display name, id, or unique id prefix.`,
	}
	cmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "session id (default: most recently changed)")

	cmd.AddCommand(c.editOpenCommand())
	cmd.AddCommand(c.editNewCommand())
	cmd.AddCommand(c.editShowCommand(&sessionID))
	cmd.AddCommand(c.editAddCommand(&sessionID))
	cmd.AddCommand(c.editRemoveCommand(&sessionID))
	cmd.AddCommand(c.editConnectCommand(&sessionID))
	cmd.AddCommand(c.editDisconnectCommand(&sessionID))
	cmd.AddCommand(c.editRenameCommand(&sessionID))
	cmd.AddCommand(c.editRetypeCommand(&sessionID))
	cmd.AddCommand(c.editSetCommand(&sessionID))
	cmd.AddCommand(c.editMoveCommand(&sessionID))
	cmd.AddCommand(c.editExportCommand(&sessionID))
	cmd.AddCommand(c.editSaveCommand(&sessionID))
	cmd.AddCommand(c.editListCommand())
	cmd.AddCommand(c.editCloseCommand(&sessionID))
	cmd.AddCommand(c.editCleanupCommand())
	return cmd
}

// =============================================================================
// Session plumbing
// =============================================================================

func openSessions() (*session.FileStore, error) {
	return session.NewFileStore("")
}

// loadSession returns the session named by id, or the newest one.
func loadSession(sessions *session.FileStore, id string) (*session.Session, error) {
	if id == "" {
		list, err := sessions.List()
		if err != nil {
			return nil, err
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: no open sessions; start one with %s edit open", session.ErrNotFound, appName)
		}
		id = list[0].ID
	}
	return sessions.Get(id)
}

// mutate loads a session, applies fn and stores the result.
func (c *CLI) mutate(id string, fn func(reg *schema.Registry, sess *session.Session) error) error {
	reg, err := c.registry()
	if err != nil {
		return err
	}
	sessions, err := openSessions()
	if err != nil {
		return err
	}
	sess, err := loadSession(sessions, id)
	if err != nil {
		return err
	}
	if err := fn(reg, sess); err != nil {
		return err
	}
	c.Logger.Debug("session updated", "id", sess.ID, "nodes", sess.Graph.NodeCount())
	return sessions.Set(sess)
}

// resolveNode finds a node by id, display name or unique id prefix.
func resolveNode(sess *session.Session, ref string) (*graph.Node, error) {
	if n, err := sess.Resolve(ref); err == nil {
		return n, nil
	}
	var match *graph.Node
	for _, n := range sess.Graph.Nodes() {
		if strings.HasPrefix(n.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("node reference %q is ambiguous", ref)
			}
			match = n
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", graph.ErrUnknownNode, ref)
	}
	return match, nil
}

// resolveType accepts a full discriminator or its unique short name, e.g.
// "FileSink" for "#Microsoft.VideoAnalyzer.FileSink".
func resolveType(reg *schema.Registry, ref string) (string, error) {
	if _, ok := reg.Lookup(ref); ok {
		return ref, nil
	}
	var match string
	for _, d := range reg.Definitions() {
		if d.Kind == topology.Other || !strings.EqualFold(render.ShortType(d.Type), ref) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("type %q is ambiguous: %s, %s", ref, match, d.Type)
		}
		match = d.Type
	}
	if match == "" {
		return "", fmt.Errorf("%w: %q", session.ErrUnknownType, ref)
	}
	return match, nil
}

// parseValue decodes a property value given on the command line. Valid JSON
// is used as such; anything else is a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// setPath assigns value under a dotted key such as "endpoint.url",
// creating intermediate objects. A nil value removes the leaf.
func setPath(sess *session.Session, n *graph.Node, key string, value any) error {
	head, rest, nested := strings.Cut(key, ".")
	if !nested {
		return sess.Set(n.ID, key, value)
	}
	root, _ := topology.CloneValue(n.Data.NodeProperties[head]).(map[string]any)
	if root == nil {
		root = map[string]any{}
	}
	parts := strings.Split(rest, ".")
	m := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	leaf := parts[len(parts)-1]
	if value == nil {
		delete(m, leaf)
	} else {
		m[leaf] = value
	}
	return sess.Set(n.ID, head, root)
}

// =============================================================================
// Lifecycle
// =============================================================================

func (c *CLI) editOpenCommand() *cobra.Command {
	var fromStore bool

	cmd := &cobra.Command{
		Use:   "open <topology|session|name>",
		Short: "Start a session from a document, a session file, or a stored topology",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ch := c.openCache(ctx, false)
			defer c.closeCache(ch)
			engine, err := c.engine(ch)
			if err != nil {
				return err
			}

			var g *graph.Graph
			var meta topology.Metadata
			if fromStore {
				st, err := c.openStore(ctx)
				if err != nil {
					return err
				}
				defer c.closeStore(ctx, st)
				doc, err := st.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if g, meta, err = convert.Flatten(ctx, doc, convert.Options{Engine: engine, Logger: c.Logger}); err != nil {
					return err
				}
			} else if g, meta, err = c.loadGraph(ctx, cmd, args[0], engine); err != nil {
				return err
			}

			sessions, err := openSessions()
			if err != nil {
				return err
			}
			sess := session.New(meta, g)
			if err := sessions.Set(sess); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			printSuccess("Opened %s (%d nodes)", StyleHighlight.Render(meta.Name), g.NodeCount())
			printNextStep("Inspect it", appName+" edit show")
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "treat the argument as a stored topology name")
	return cmd
}

func (c *CLI) editNewCommand() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Start a session on an empty canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateName(args[0]); err != nil {
				return err
			}
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			sess := session.New(topology.Metadata{Name: args[0], Description: description}, nil)
			if err := sessions.Set(sess); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			printSuccess("Created %s", StyleHighlight.Render(args[0]))
			printNextStep("Add a source", appName+" edit add RtspSource camera")
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "topology description")
	return cmd
}

func (c *CLI) editShowCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the nodes of a session and a validation summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, _, err := c.validator()
			if err != nil {
				return err
			}
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			sess, err := loadSession(sessions, *id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printKeyValue(w, "Session", sess.ID)
			printKeyValue(w, "Topology", sess.Meta.Name)
			printKeyValue(w, "Updated", sess.UpdatedAt.Local().Format(time.DateTime))
			printKeyValue(w, "Size", fmt.Sprintf("%d nodes, %d edges", sess.Graph.NodeCount(), sess.Graph.EdgeCount()))
			if sess.Graph.NodeCount() > 0 {
				fmt.Fprintln(w, nodesTable(sess.Graph))
			}

			if findings := v.Validate(sess.Graph); len(findings) > 0 {
				fmt.Fprintln(w, validationTable(findings))
			} else {
				fmt.Fprintln(w, StyleSuccess.Render(iconSuccess+" valid"))
			}
			return nil
		},
	}
}

func (c *CLI) editListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			list, err := sessions.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				printInfo("No open sessions")
				return nil
			}
			rows := make([][]string, len(list))
			for i, s := range list {
				rows[i] = []string{s.ID, s.Name, strconv.Itoa(s.Nodes), s.UpdatedAt.Local().Format(time.DateTime)}
			}
			t := newTable("ID", "Topology", "Nodes", "Updated").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == headerRow {
						return styleHeader
					}
					if col == 0 {
						return StyleDim
					}
					return lipgloss.NewStyle()
				})
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func (c *CLI) editCloseCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Discard a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			sess, err := loadSession(sessions, *id)
			if err != nil {
				return err
			}
			if err := sessions.Delete(sess.ID); err != nil {
				return err
			}
			printSuccess("Closed %s", sess.Meta.Name)
			return nil
		},
	}
}

func (c *CLI) editCleanupCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Discard sessions not changed recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			n, err := sessions.Cleanup(olderThan)
			if err != nil {
				return err
			}
			printSuccess("Removed %d sessions", n)
			printDetail("Directory: %s", sessions.Path())
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age after which sessions are removed")
	return cmd
}

// =============================================================================
// Mutations
// =============================================================================

func (c *CLI) editAddCommand(id *string) *cobra.Command {
	var x, y float64

	cmd := &cobra.Command{
		Use:   "add <type> <name>",
		Short: "Add a node of a definition type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(*id, func(reg *schema.Registry, sess *session.Session) error {
				typ, err := resolveType(reg, args[0])
				if err != nil {
					return err
				}
				n, err := sess.AddNode(reg, typ, args[1])
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
					if err := sess.Move(n.ID, x, y); err != nil {
						return err
					}
				}
				printSuccess("Added %s %s", n.Data.NodeType, StyleHighlight.Render(n.Name))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "left edge in pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "top edge in pixels")
	return cmd
}

func (c *CLI) editRemoveCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <node>",
		Short: "Remove a node and its edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(*id, func(_ *schema.Registry, sess *session.Session) error {
				n, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				name := n.Name
				removed, err := sess.RemoveNode(n.ID)
				if err != nil {
					return err
				}
				printSuccess("Removed %s and %d edges", name, len(removed))
				return nil
			})
		},
	}
}

func (c *CLI) editConnectCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "connect <from> <to>",
		Short: "Feed the output of one node into another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(*id, func(reg *schema.Registry, sess *session.Session) error {
				src, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				dst, err := resolveNode(sess, args[1])
				if err != nil {
					return err
				}
				if _, err := sess.Connect(reg, src.ID, dst.ID); err != nil {
					return err
				}
				printSuccess("Connected %s %s %s", src.Name, iconArrow, dst.Name)
				return nil
			})
		},
	}
}

func (c *CLI) editDisconnectCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <from> <to> | <edge-id>",
		Short: "Remove an edge",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(*id, func(_ *schema.Registry, sess *session.Session) error {
				edgeID := args[0]
				if len(args) == 2 {
					src, err := resolveNode(sess, args[0])
					if err != nil {
						return err
					}
					dst, err := resolveNode(sess, args[1])
					if err != nil {
						return err
					}
					edgeID = ""
					for _, e := range sess.Graph.OutgoingEdges(src.ID) {
						if e.Target == dst.ID {
							edgeID = e.ID
							break
						}
					}
					if edgeID == "" {
						return fmt.Errorf("%w: %s %s %s", graph.ErrUnknownEdge, src.Name, iconArrow, dst.Name)
					}
				}
				if _, err := sess.Disconnect(edgeID); err != nil {
					return err
				}
				printSuccess("Disconnected")
				return nil
			})
		},
	}
}

func (c *CLI) editRenameCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <node> <name>",
		Short: "Change the display name of a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(*id, func(_ *schema.Registry, sess *session.Session) error {
				n, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				old := n.Name
				if err := sess.Rename(n.ID, args[1]); err != nil {
					return err
				}
				printSuccess("Renamed %s %s %s", old, iconArrow, args[1])
				return nil
			})
		},
	}
}

func (c *CLI) editRetypeCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "retype <node> <type>",
		Short: "Switch a node to another definition of the same kind",
		Long: `Retype switches a node's definition, e.g. an HttpExtension to a GrpcExtension.
Existing property values stay in the session so switching back loses nothing;
values the new type does not declare are dropped on export.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(*id, func(reg *schema.Registry, sess *session.Session) error {
				n, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				typ, err := resolveType(reg, args[1])
				if err != nil {
					return err
				}
				if err := sess.SetType(reg, n.ID, typ); err != nil {
					return err
				}
				printSuccess("%s is now %s", n.Name, render.ShortType(typ))
				return nil
			})
		},
	}
}

func (c *CLI) editSetCommand(id *string) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "set <node> <key> [value]",
		Short: "Set or remove a node property",
		Long: `Set assigns a property. Dotted keys reach into nested objects, e.g.
endpoint.credentials.username. Values that parse as JSON are used as such,
so 42, true and {"@type": "..."} keep their types; anything else is a string.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case unset && len(args) == 3:
				return errors.New(errors.ErrCodeInvalidInput, "give a value or --unset, not both")
			case !unset && len(args) == 2:
				return errors.New(errors.ErrCodeInvalidInput, "missing value; use --unset to remove %s", args[1])
			}
			var value any
			if !unset {
				if value = parseValue(args[2]); value == nil {
					return errors.New(errors.ErrCodeInvalidInput, "null is not a property value; use --unset to remove %s", args[1])
				}
			}
			return c.mutate(*id, func(_ *schema.Registry, sess *session.Session) error {
				n, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				if err := setPath(sess, n, args[1], value); err != nil {
					return err
				}
				if unset {
					printSuccess("Removed %s.%s", n.Name, args[1])
				} else {
					printSuccess("Set %s.%s", n.Name, args[1])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "remove the property")
	return cmd
}

func (c *CLI) editMoveCommand(id *string) *cobra.Command {
	return &cobra.Command{
		Use:   "move <node> <x> <y>",
		Short: "Place a node's top-left corner",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "x")
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidInput, err, "y")
			}
			return c.mutate(*id, func(_ *schema.Registry, sess *session.Session) error {
				n, err := resolveNode(sess, args[0])
				if err != nil {
					return err
				}
				return sess.Move(n.ID, x, y)
			})
		},
	}
}

// =============================================================================
// Output
// =============================================================================

// collectChecked validates a session and collects it. Findings block the
// collection unless force is set.
func (c *CLI) collectChecked(id string, force bool) (*topology.Document, error) {
	v, reg, err := c.validator()
	if err != nil {
		return nil, err
	}
	sessions, err := openSessions()
	if err != nil {
		return nil, err
	}
	sess, err := loadSession(sessions, id)
	if err != nil {
		return nil, err
	}
	if findings := v.Validate(sess.Graph); len(findings) > 0 {
		if !force {
			fmt.Fprintln(statusOut, validationTable(findings))
			return nil, errors.New(errors.ErrCodeValidationFailed, "%s: %d findings; fix them or pass --force", sess.Meta.Name, len(findings))
		}
		printWarning("Ignoring %d findings", len(findings))
	}
	return convert.Collect(sess.Graph, sess.Meta, reg), nil
}

func (c *CLI) editExportCommand(id *string) *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the session as a topology document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.collectChecked(*id, force)
			if err != nil {
				return err
			}
			return writeDocument(cmd, output, doc)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&force, "force", false, "export despite validation findings")
	return cmd
}

func (c *CLI) editSaveCommand(id *string) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the session into the topology store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.collectChecked(*id, force)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer c.closeStore(ctx, st)
			if err := st.Put(ctx, doc); err != nil {
				return err
			}
			printSuccess("Saved %s (%d nodes)", StyleHighlight.Render(doc.Name), doc.NodeCount())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "save despite validation findings")
	return cmd
}
