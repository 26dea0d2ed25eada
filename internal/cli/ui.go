package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/render"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
	"github.com/matzehuels/topoedit/pkg/validate"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success, sources
	colorYellow = lipgloss.Color("220") // Amber - warnings, processors
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links, sinks
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder  = lipgloss.NewStyle().Foreground(colorDim)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// kindStyles colours node kinds the way diagrams do.
var kindStyles = map[topology.NodeType]lipgloss.Style{
	topology.Source:    lipgloss.NewStyle().Foreground(colorGreen),
	topology.Processor: lipgloss.NewStyle().Foreground(colorYellow),
	topology.Sink:      lipgloss.NewStyle().Foreground(colorBlue),
	topology.Other:     lipgloss.NewStyle().Foreground(colorGray),
}

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// statusOut receives status lines. Results go to the command's stdout.
var statusOut io.Writer = os.Stderr

func printSuccess(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(statusOut, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Tables
// =============================================================================

// headerRow is the row index lipgloss tables pass for the header.
const headerRow = -1

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...)
}

// validationTable renders findings as Kind / Node / Message rows.
func validationTable(errs []validate.Error) string {
	rows := make([][]string, len(errs))
	for i, e := range errs {
		node := e.NodeName
		if node == "" {
			node = "—"
		}
		rows[i] = []string{string(e.Kind), node, e.Message}
	}
	return newTable("Kind", "Node", "Message").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 0 && errs[row].Kind == validate.ServerError:
				return StyleWarning
			case col == 0:
				return StyleError
			case col == 1:
				return StyleValue
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// nodesTable renders the nodes of g with their kind, type and inputs.
func nodesTable(g *graph.Graph) string {
	nodes := g.Nodes()
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		inputs := strings.Join(g.NodeInputs(n.ID), ", ")
		if inputs == "" {
			inputs = "—"
		}
		rows[i] = []string{n.Name, n.Data.NodeType.String(), render.ShortType(n.Type()), inputs, shortID(n.ID)}
	}
	return newTable("Name", "Kind", "Type", "Inputs", "ID").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 1:
				return kindStyles[nodes[row].Data.NodeType]
			case col == 4:
				return StyleDim
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// definitionsTable renders the node definitions of reg.
func definitionsTable(defs []*schema.Definition) string {
	rows := make([][]string, len(defs))
	for i, d := range defs {
		var required []string
		for _, p := range d.Properties {
			if p.Required {
				required = append(required, p.Name)
			}
		}
		parents := make([]string, len(d.Parents))
		for j, p := range d.Parents {
			parents[j] = render.ShortType(p)
		}
		rows[i] = []string{render.ShortType(d.Type), d.Kind.String(), strings.Join(required, ", "), strings.Join(parents, ", ")}
	}
	return newTable("Type", "Kind", "Required", "Parents").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 1:
				return kindStyles[defs[row].Kind]
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// shortID abbreviates a uuid for display. Edit commands accept unique
// prefixes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
