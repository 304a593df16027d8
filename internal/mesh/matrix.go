package mesh

import (
	"fmt"
	"sync"
)

// Matrix holds one Outcome per ordered pair. Cells are write-once; the
// scheduler is the only writer and each task owns exactly one cell.
type Matrix struct {
	hosts []string
	mu    sync.RWMutex
	cells map[Pair]Outcome
}

// NewMatrix returns an empty matrix over hosts. The host order is the
// presentation order for both axes.
func NewMatrix(hosts []string) *Matrix {
	h := make([]string, len(hosts))
	copy(h, hosts)
	return &Matrix{
		hosts: h,
		cells: make(map[Pair]Outcome, len(hosts)*len(hosts)),
	}
}

// Set records the outcome for p. It refuses self pairs and second writes.
func (m *Matrix) Set(p Pair, o Outcome) error {
	if p.Client == p.Server {
		return fmt.Errorf("self pair %s", p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cells[p]; ok {
		return fmt.Errorf("outcome for %s already recorded", p)
	}
	m.cells[p] = o
	return nil
}

// Get returns the outcome for client -> server.
func (m *Matrix) Get(client, server string) (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.cells[Pair{Client: client, Server: server}]
	return o, ok
}

// Len is the number of recorded outcomes.
func (m *Matrix) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}

// Hosts returns the hosts in presentation order.
func (m *Matrix) Hosts() []string {
	h := make([]string, len(m.hosts))
	copy(h, m.hosts)
	return h
}

// Complete reports whether every ordered pair has an outcome.
func (m *Matrix) Complete() bool {
	n := len(m.hosts)
	return m.Len() == n*(n-1)
}

// Each calls fn for every recorded pair in presentation order.
func (m *Matrix) Each(fn func(p Pair, o Outcome)) {
	for _, p := range Pairs(m.hosts) {
		if o, ok := m.Get(p.Client, p.Server); ok {
			fn(p, o)
		}
	}
}

// Failures counts the recorded outcomes that are failures.
func (m *Matrix) Failures() int {
	n := 0
	m.Each(func(_ Pair, o Outcome) {
		if o.Failed() {
			n++
		}
	})
	return n
}
