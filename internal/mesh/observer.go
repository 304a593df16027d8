package mesh

import "time"

// Phase names a stage of a run.
type Phase string

const (
	PhaseStart   Phase = "start"
	PhaseMeasure Phase = "measure"
	PhaseStop    Phase = "stop"
)

// Observer is told about progress. Methods are called from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	// PhaseStarted is called once per phase with the number of tasks in it.
	PhaseStarted(phase Phase, total int)
	// HostDone is called per host in the start and stop phases.
	HostDone(phase Phase, host string, err error)
	// PairDone is called per pair in the measure phase.
	PairDone(pair Pair, outcome Outcome, elapsed time.Duration)
	// PhaseDone is called once every task of the phase has finished.
	PhaseDone(phase Phase, elapsed time.Duration)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) PhaseStarted(Phase, int)               {}
func (NopObserver) HostDone(Phase, string, error)         {}
func (NopObserver) PairDone(Pair, Outcome, time.Duration) {}
func (NopObserver) PhaseDone(Phase, time.Duration)        {}

// Observers fans every call out to each observer in order.
type Observers []Observer

func (os Observers) PhaseStarted(phase Phase, total int) {
	for _, o := range os {
		o.PhaseStarted(phase, total)
	}
}

func (os Observers) HostDone(phase Phase, host string, err error) {
	for _, o := range os {
		o.HostDone(phase, host, err)
	}
}

func (os Observers) PairDone(pair Pair, outcome Outcome, elapsed time.Duration) {
	for _, o := range os {
		o.PairDone(pair, outcome, elapsed)
	}
}

func (os Observers) PhaseDone(phase Phase, elapsed time.Duration) {
	for _, o := range os {
		o.PhaseDone(phase, elapsed)
	}
}
