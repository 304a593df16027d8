package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// RenderSimpleTable renders a non-interactive table string using the
// Bubbles table component.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(tableRows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Unfocused tables still highlight the cursor row; make it look like
	// every other row.
	s.Selected = s.Cell
	t.SetStyles(s)

	return t.View()
}

// CheckRow is one host in the `check` output.
type CheckRow struct {
	Host    string
	OK      bool
	Latency string // SSH round trip, or "-" if unreachable
	Detail  string // iperf3 version, or what went wrong
}

// RenderCheckTable renders per-host readiness.
func RenderCheckTable(rows []CheckRow) string {
	if len(rows) == 0 {
		return "No hosts to check"
	}

	successStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	hostWidth := len("HOST") + 2
	for _, row := range rows {
		if w := lipgloss.Width(row.Host) + 2; w > hostWidth {
			hostWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("  STATUS   "+padRight("HOST", hostWidth)+padRight("LATENCY", 10)+"DETAIL") + "\n")

	for _, row := range rows {
		icon := successStyle.Render(SymbolComplete)
		detail := mutedStyle.Render(row.Detail)
		if !row.OK {
			icon = errorStyle.Render(SymbolFail)
			detail = errorStyle.Render(row.Detail)
		}
		b.WriteString("  " + icon + "        " +
			padRight(row.Host, hostWidth) +
			padRight(row.Latency, 10) +
			detail + "\n")
	}
	return b.String()
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visibleLen := lipgloss.Width(s)
	if visibleLen >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visibleLen)
}
