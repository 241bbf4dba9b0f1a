package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))             // green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))             // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))            // yellow
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))            // blue
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))            // cyan
	debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))           // light grey
	streamStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))           // grey
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69")) // bundle titles
)

// StyleSymbols prefixes each file line of the progress display.
var StyleSymbols = map[string]string{
	"pass":    "✓",
	"fail":    "✗",
	"warning": "!",
	"pending": "◉",
	"bullet":  "•",
	"hline":   "━",
}

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}

// PrintFailure prints a failed bundle with its cause indented below.
func PrintFailure(w io.Writer, name string, cause error) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%s %s", StyleSymbols["fail"], name)))
	fmt.Fprintln(w, streamStyle.Render(fmt.Sprintf("  %v", cause)))
}

func FInfo(text string) string {
	return infoStyle.Render(text)
}

func FHeader(text string) string {
	return headerStyle.Render(text)
}
