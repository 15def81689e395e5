// Package render draws dashboard tables for the terminal
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trogers1052/stock-sniper-dashboard/internal/format"
	"github.com/trogers1052/stock-sniper-dashboard/internal/view"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	tickerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	staleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const colGap = "  "

func trendStyle(t format.Trend) lipgloss.Style {
	switch t {
	case format.TrendUp:
		return gainStyle
	case format.TrendDown:
		return lossStyle
	case format.TrendFlat:
		return dimStyle
	default:
		return lipgloss.NewStyle()
	}
}

// Table writes t as an aligned block: title bar, column headers, rows and
// a staleness note when the last refresh failed
func Table(w io.Writer, t view.Table) error {
	widths := columnWidths(t)

	var b strings.Builder
	b.WriteString(titleStyle.Render(" " + t.Title + " "))
	b.WriteString("\n")

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = pad(c, widths[i])
	}
	b.WriteString(colHeaderStyle.Render(strings.Join(header, colGap)))
	b.WriteString("\n")

	for _, row := range t.Rows {
		if row.Sentinel {
			msg := ""
			if len(row.Cells) > 0 {
				msg = row.Cells[0].Text
			}
			b.WriteString(dimStyle.Render("  " + msg))
			b.WriteString("\n")
			continue
		}

		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			style := trendStyle(c.Trend)
			if i == 0 {
				style = tickerStyle
			}
			width := 0
			if i < len(widths) {
				width = widths[i]
			}
			cells[i] = style.Render(pad(c.Text, width))
		}
		b.WriteString(strings.Join(cells, colGap))
		b.WriteString("\n")
	}

	if t.Stale {
		b.WriteString(staleStyle.Render("  stale: " + t.LastError))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Tables writes each table followed by a blank line
func Tables(w io.Writer, tables []view.Table) error {
	for _, t := range tables {
		if err := Table(w, t); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func columnWidths(t view.Table) []int {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range t.Rows {
		if row.Sentinel {
			continue
		}
		for i, c := range row.Cells {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c.Text))
			}
		}
	}
	return widths
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
