package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rileyhilliard/gpubench/internal/ui"
)

// Styles controls how the table is coloured.
type Styles struct {
	Header lipgloss.Style
	Host   lipgloss.Style
	Value  lipgloss.Style
	Low    lipgloss.Style
	Error  lipgloss.Style
	Self   lipgloss.Style
	Border lipgloss.Style
	Muted  lipgloss.Style
}

// DefaultStyles uses the shared ui palette. Low links and errors are red.
func DefaultStyles() Styles {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return Styles{
		Header: cell.Bold(true).Foreground(ui.ColorPrimary),
		Host:   cell.Bold(true).Foreground(ui.ColorSecondary),
		Value:  cell.Align(lipgloss.Right),
		Low:    cell.Align(lipgloss.Right).Bold(true).Foreground(ui.ColorError),
		Error:  cell.Align(lipgloss.Center).Foreground(ui.ColorError),
		Self:   cell.Align(lipgloss.Center).Foreground(ui.ColorMuted),
		Border: lipgloss.NewStyle().Foreground(ui.ColorMuted),
		Muted:  lipgloss.NewStyle().Foreground(ui.ColorMuted),
	}
}

const corner = "client \\ server"

// RenderTable draws the matrix with clients as rows and servers as columns,
// both in host order.
func RenderTable(r *Report, s Styles) string {
	rows := make([][]string, len(r.Hosts))
	for i, client := range r.Hosts {
		row := make([]string, 0, len(r.Hosts)+1)
		row = append(row, client)
		for _, c := range r.Grid[i] {
			row = append(row, c.Text())
		}
		rows[i] = row
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		Headers(append([]string{corner}, r.Hosts...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if col == 0 {
				return s.Host
			}
			switch r.Grid[row][col-1].Kind {
			case CellLow:
				return s.Low
			case CellError:
				return s.Error
			case CellNA:
				return s.Self
			}
			return s.Value
		})

	return t.Render()
}

// RenderLegend explains the markers and the threshold.
func RenderLegend(r *Report, s Styles) string {
	return s.Muted.Render(fmt.Sprintf(
		"Gbps, client rows to server columns. %s = self. %s = not measured. %s = below %.1f Gbps.",
		MarkerSelf, MarkerError, MarkerLow, r.ThresholdGbps))
}

// RenderFailures lists every ERR cell with its message. Empty when none.
func RenderFailures(r *Report, s Styles) string {
	failures := r.Failures()
	if len(failures) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(s.Error.UnsetPadding().UnsetAlign().Render(fmt.Sprintf("%s %d pair(s) could not be measured:", ui.SymbolFail, len(failures))))
	b.WriteString("\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "  %s -> %s: %s\n", f.Client, f.Server, s.Muted.Render(f.Err))
	}
	return b.String()
}

// RenderSummary is a one-line count of the run.
func RenderSummary(r *Report, s Styles) string {
	sum := r.Summary
	line := fmt.Sprintf("%d pairs: %d measured, %d below %.1f Gbps, %d failed",
		sum.Pairs, sum.Measured, sum.Low, r.ThresholdGbps, sum.Failed)
	if sum.Measured > 0 {
		line += fmt.Sprintf(" (min %.1f, mean %.1f, max %.1f Gbps)", sum.MinGbps, sum.MeanGbps, sum.MaxGbps)
	}
	symbol := lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess)
	if r.Degraded() {
		symbol = lipgloss.NewStyle().Foreground(ui.ColorWarning).Render(ui.SymbolFail)
	}
	return symbol + " " + line
}
