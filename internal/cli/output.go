package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = 3

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	healthyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	unhealthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTable writes rows under headers with columns padded to the widest
// cell. Widths are measured with lipgloss so styled cells stay aligned.
func printTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
	}
	if err := writeRow(w, widths, styled); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeRow(w, widths, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, widths []int, cells []string) error {
	var b strings.Builder
	for i, cell := range cells {
		b.WriteString(cell)
		if i == len(cells)-1 {
			break
		}
		pad := widths[i] - lipgloss.Width(cell) + columnGap
		b.WriteString(strings.Repeat(" ", max(pad, 1)))
	}
	_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	return err
}

func orDash(s string) string {
	if s == "" {
		return mutedStyle.Render("-")
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
