package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableHeaderStyle = headerStyle.Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableBorderStyle = streamStyle
)

type Table struct {
	Headers []string
	Rows    [][]string
	// RightAlign lists column indexes rendered flush right, such as sizes.
	RightAlign []int
	// MaxWidth caps the rendered width; 0 leaves it unbounded.
	MaxWidth int
}

func (t Table) Render() string {
	right := make(map[int]bool, len(t.RightAlign))
	for _, c := range t.RightAlign {
		right[c] = true
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorderStyle).
		Headers(t.Headers...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := tableCellStyle
			if row == table.HeaderRow {
				style = tableHeaderStyle
			}
			if right[col] {
				return style.Align(lipgloss.Right)
			}
			return style
		})
	if t.MaxWidth > 0 {
		tbl = tbl.Width(t.MaxWidth)
	}
	return tbl.String()
}

// PrintTable renders t and shrinks it to the terminal width when it would
// otherwise wrap.
func PrintTable(w io.Writer, t Table) {
	rendered := t.Render()
	if width := getTerminalWidth(); t.MaxWidth == 0 && lipgloss.Width(rendered) > width {
		t.MaxWidth = width
		rendered = t.Render()
	}
	fmt.Fprintln(w, rendered)
}
