package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/topoedit/pkg/validate"
)

var (
	listDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	detailKeyStyle  = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	detailPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

// =============================================================================
// FindingsModel - Interactive validation browser
// =============================================================================

// FindingsModel browses validation findings: a scrolling list on top and
// the details of the selected finding below.
type FindingsModel struct {
	Title    string
	Findings []validate.Error
	Cursor   int
	Offset   int
	Height   int
}

// NewFindingsModel creates a findings browser.
func NewFindingsModel(title string, findings []validate.Error) FindingsModel {
	return FindingsModel{Title: title, Findings: findings, Height: 10}
}

func (m FindingsModel) Init() tea.Cmd {
	return nil
}

func (m FindingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Findings)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "home", "g":
			m.Cursor, m.Offset = 0, 0
		case "end", "G":
			m.Cursor = max(len(m.Findings)-1, 0)
			m.Offset = max(m.Cursor-m.Height+1, 0)
		}
	case tea.WindowSizeMsg:
		// Title, help, detail pane and counter take about 14 lines.
		m.Height = max(msg.Height-14, 3)
		if m.Cursor >= m.Offset+m.Height {
			m.Offset = m.Cursor - m.Height + 1
		}
	}
	return m, nil
}

func (m FindingsModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	if len(m.Findings) == 0 {
		b.WriteString(StyleSuccess.Render(iconSuccess + " no findings"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Findings))
	rows := make([][]string, 0, end-m.Offset)
	for i := m.Offset; i < end; i++ {
		f := m.Findings[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		node := f.NodeName
		if node == "" {
			node = "—"
		}
		rows = append(rows, []string{cursor, string(f.Kind), node})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "Kind", "Node").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return lipgloss.NewStyle().Foreground(colorRed).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(detailPaneStyle.Render(findingDetail(m.Findings[m.Cursor])))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Findings))))
	return b.String()
}

// findingDetail lists every populated field of a finding.
func findingDetail(f validate.Error) string {
	var lines []string
	add := func(key, value string) {
		if value != "" {
			lines = append(lines, detailKeyStyle.Render(key)+" "+value)
		}
	}
	add("Kind", StyleError.Render(string(f.Kind)))
	add("Node", StyleValue.Render(f.NodeName))
	add("Type", f.Type)
	add("Field", strings.Join(f.Path, "."))
	add("Parents", strings.Join(f.Parents, ", "))
	add("Message", f.Message)
	if f.Docs != "" {
		add("Docs", StyleLink.Render(f.Docs))
	}
	return strings.Join(lines, "\n")
}
