package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/mesh"
)

// DividerWidth is the default width for divider lines.
const DividerWidth = 64

var phaseLabels = map[mesh.Phase][2]string{
	// in progress, done
	mesh.PhaseStart:   {"Starting servers", "Servers started"},
	mesh.PhaseMeasure: {"Measuring pairs", "Pairs measured"},
	mesh.PhaseStop:    {"Stopping servers", "Servers stopped"},
}

// PhaseDisplay prints one line per phase and one sub-line per failed
// host. It is the non-interactive mesh.Observer: safe for pipes and logs.
type PhaseDisplay struct {
	mu     sync.Mutex
	w      io.Writer
	total  int
	failed int
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// PhaseStarted implements mesh.Observer.
func (pd *PhaseDisplay) PhaseStarted(phase mesh.Phase, total int) {
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.total = total
	pd.failed = 0
	style := lipgloss.NewStyle().Foreground(ColorSecondary)
	fmt.Fprintf(pd.w, "%s %s (%d)...\n", style.Render(SymbolProgress), phaseLabels[phase][0], total)
}

// HostDone implements mesh.Observer. Only start failures are shown;
// teardown is best effort and its failures stay in the debug log.
func (pd *PhaseDisplay) HostDone(phase mesh.Phase, host string, err error) {
	if err == nil {
		return
	}
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.failed++
	if phase != mesh.PhaseStart {
		return
	}
	pd.renderSubStatus(SymbolFail, host, "error starting server on host: "+errors.Summary(err))
}

// PairDone implements mesh.Observer.
func (pd *PhaseDisplay) PairDone(_ mesh.Pair, o mesh.Outcome, _ time.Duration) {
	if !o.Failed() {
		return
	}
	pd.mu.Lock()
	defer pd.mu.Unlock()
	pd.failed++
}

// PhaseDone implements mesh.Observer.
func (pd *PhaseDisplay) PhaseDone(phase mesh.Phase, elapsed time.Duration) {
	pd.mu.Lock()
	defer pd.mu.Unlock()

	name := phaseLabels[phase][1]
	if phase != mesh.PhaseStop && pd.failed > 0 {
		name = fmt.Sprintf("%s, %d of %d failed", name, pd.failed, pd.total)
		fmt.Fprintln(pd.w, FormatPhase(SymbolWarning, ColorWarning, name, formatDuration(elapsed)))
		return
	}
	fmt.Fprintln(pd.w, FormatPhase(SymbolComplete, ColorSuccess, name, formatDuration(elapsed)))
}

// renderSubStatus renders an indented sub-status line.
// Shows:   ✗ gpu-02 error starting server on host: ...
func (pd *PhaseDisplay) renderSubStatus(symbol string, name string, status string) {
	symbolStyle := lipgloss.NewStyle().Foreground(ColorError)
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "  %s %s %s\n",
		symbolStyle.Render(symbol),
		name,
		style.Render(status),
	)
}

// FormatPhase returns a formatted phase line as a string.
func FormatPhase(symbol string, symbolColor lipgloss.Color, name string, timing string) string {
	symbolStyle := lipgloss.NewStyle().Foreground(symbolColor)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	if timing == "" {
		return fmt.Sprintf("%s %s", symbolStyle.Render(symbol), name)
	}
	return fmt.Sprintf("%s %s %s", symbolStyle.Render(symbol), name, timingStyle.Render(timing))
}

// FormatDivider returns a divider line as a string.
func FormatDivider(width int) string {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	return style.Render(strings.Repeat("━", width))
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("(%.2fs)", secs)
	}
	return fmt.Sprintf("(%.1fs)", secs)
}
