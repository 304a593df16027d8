package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/gpubench/internal/mesh"
)

// Messages the observer side feeds into the model.
type (
	phaseStartedMsg struct {
		phase mesh.Phase
		total int
	}
	taskDoneMsg struct {
		label  string
		failed bool
	}
	phaseDoneMsg struct {
		phase   mesh.Phase
		elapsed time.Duration
	}
	quitMsg struct{}
)

const progressWidth = 40

// progressModel is the Bubble Tea model behind MeshProgress.
type progressModel struct {
	spinner  spinner.Model
	bar      progress.Model
	phase    mesh.Phase
	total    int
	done     int
	failed   int
	last     string
	history  []string
	quitting bool
}

func newProgressModel() progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	bar := progress.New(
		progress.WithSolidFill(string(ColorSecondary)),
		progress.WithWidth(progressWidth),
		progress.WithoutPercentage(),
	)

	return progressModel{spinner: s, bar: bar}
}

// Init implements tea.Model.
func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case phaseStartedMsg:
		m.phase = msg.phase
		m.total = msg.total
		m.done = 0
		m.failed = 0
		m.last = ""
		return m, m.bar.SetPercent(0)

	case taskDoneMsg:
		m.done++
		if msg.failed {
			m.failed++
		}
		m.last = msg.label
		return m, m.bar.SetPercent(m.fraction())

	case phaseDoneMsg:
		symbol, color := SymbolComplete, ColorSuccess
		label := phaseLabels[msg.phase][1]
		if m.failed > 0 && msg.phase != mesh.PhaseStop {
			symbol, color = SymbolWarning, ColorWarning
			label = fmt.Sprintf("%s, %d of %d failed", label, m.failed, m.total)
		}
		m.history = append(m.history, FormatPhase(symbol, color, label, formatDuration(msg.elapsed)))
		return m, nil

	case quitMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd
	}
	return m, nil
}

func (m progressModel) fraction() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

// View implements tea.Model.
func (m progressModel) View() string {
	var b strings.Builder
	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.quitting || m.phase == "" {
		return b.String()
	}

	muted := lipgloss.NewStyle().Foreground(ColorMuted)
	counts := fmt.Sprintf("%d/%d", m.done, m.total)
	if m.failed > 0 {
		counts += lipgloss.NewStyle().Foreground(ColorError).Render(fmt.Sprintf("  %d failed", m.failed))
	}
	fmt.Fprintf(&b, "%s %s  %s  %s\n", m.spinner.View(), phaseLabels[m.phase][0], m.bar.View(), counts)
	if m.last != "" {
		b.WriteString(muted.Render("  last: "+m.last) + "\n")
	}
	return b.String()
}

// MeshProgress is a live terminal view of a run. It implements
// mesh.Observer; calls are forwarded to the Bubble Tea program and are
// safe from any goroutine.
type MeshProgress struct {
	program *tea.Program
	done    chan struct{}
}

// NewMeshProgress creates a progress view writing to w. It does not read
// stdin, so Ctrl+C still reaches the process as a signal.
func NewMeshProgress(w io.Writer) *MeshProgress {
	return &MeshProgress{
		program: tea.NewProgram(newProgressModel(), tea.WithOutput(w), tea.WithInput(nil)),
		done:    make(chan struct{}),
	}
}

// Start runs the view in the background.
func (p *MeshProgress) Start() {
	go func() {
		defer close(p.done)
		_, _ = p.program.Run()
	}()
}

// Stop leaves the finished phase lines on screen and waits for the
// program to exit.
func (p *MeshProgress) Stop() {
	p.program.Send(quitMsg{})
	<-p.done
}

// PhaseStarted implements mesh.Observer.
func (p *MeshProgress) PhaseStarted(phase mesh.Phase, total int) {
	p.program.Send(phaseStartedMsg{phase: phase, total: total})
}

// HostDone implements mesh.Observer.
func (p *MeshProgress) HostDone(_ mesh.Phase, host string, err error) {
	label := host
	if err != nil {
		label += " failed"
	}
	p.program.Send(taskDoneMsg{label: label, failed: err != nil})
}

// PairDone implements mesh.Observer.
func (p *MeshProgress) PairDone(pair mesh.Pair, o mesh.Outcome, _ time.Duration) {
	label := fmt.Sprintf("%s %.1f Gbps", pair, o.Gbps)
	if o.Failed() {
		label = fmt.Sprintf("%s %s", pair, o.Err)
	}
	p.program.Send(taskDoneMsg{label: label, failed: o.Failed()})
}

// PhaseDone implements mesh.Observer.
func (p *MeshProgress) PhaseDone(phase mesh.Phase, elapsed time.Duration) {
	p.program.Send(phaseDoneMsg{phase: phase, elapsed: elapsed})
}
