// Package report turns a finished mesh.Matrix into the bandwidth table
// printed on the console and the record written to disk.
package report

import (
	"fmt"
	"math"

	"github.com/rileyhilliard/gpubench/internal/mesh"
)

// Markers used in place of a number.
const (
	MarkerSelf  = "X"
	MarkerError = "ERR"
	// MarkerLow follows a value below the threshold so the table reads the
	// same without color.
	MarkerLow = "!"
)

// CellKind says how a grid cell should be presented.
type CellKind int

const (
	// CellNA is the diagonal: a host is never measured against itself.
	CellNA CellKind = iota
	CellValue
	// CellLow is a value strictly below the threshold.
	CellLow
	CellError
)

// Cell is one grid position.
type Cell struct {
	Kind CellKind
	Gbps float64
	Err  string
}

// Text is the cell's table text: one decimal place (suffixed ! when low),
// X or ERR.
func (c Cell) Text() string {
	switch c.Kind {
	case CellNA:
		return MarkerSelf
	case CellError:
		return MarkerError
	case CellLow:
		return fmt.Sprintf("%.1f%s", c.Gbps, MarkerLow)
	}
	return fmt.Sprintf("%.1f", c.Gbps)
}

// Entry is one pair in the structured record. Exactly one of Gbps and
// Error is set.
type Entry struct {
	Gbps  *float64 `json:"gbps,omitempty" yaml:"gbps,omitempty"`
	Error string   `json:"error,omitempty" yaml:"error,omitempty"`
	Low   bool     `json:"low,omitempty" yaml:"low,omitempty"`
}

// Record maps client -> server -> Entry. It has no diagonal.
type Record map[string]map[string]Entry

// Summary counts what happened across all pairs.
type Summary struct {
	Pairs    int     `json:"pairs" yaml:"pairs"`
	Measured int     `json:"measured" yaml:"measured"`
	Low      int     `json:"low" yaml:"low"`
	Failed   int     `json:"failed" yaml:"failed"`
	MinGbps  float64 `json:"min_gbps" yaml:"min_gbps"`
	MaxGbps  float64 `json:"max_gbps" yaml:"max_gbps"`
	MeanGbps float64 `json:"mean_gbps" yaml:"mean_gbps"`
}

// Report is the assembled view of one run.
type Report struct {
	Hosts         []string
	ThresholdGbps float64
	// Grid[i][j] is client Hosts[i] to server Hosts[j].
	Grid    [][]Cell
	Record  Record
	Summary Summary
}

// Assemble lays the matrix out over hosts in the given order. A value below
// thresholdGbps is flagged low; a value equal to it is not. A pair missing
// from the matrix shows as an error.
func Assemble(m *mesh.Matrix, hosts []string, thresholdGbps float64) *Report {
	r := &Report{
		Hosts:         append([]string(nil), hosts...),
		ThresholdGbps: thresholdGbps,
		Grid:          make([][]Cell, len(hosts)),
		Record:        make(Record, len(hosts)),
	}

	var sum float64
	r.Summary.MinGbps = math.Inf(1)
	for i, client := range hosts {
		r.Grid[i] = make([]Cell, len(hosts))
		for j, server := range hosts {
			if client == server {
				r.Grid[i][j] = Cell{Kind: CellNA}
				continue
			}
			r.Summary.Pairs++

			o, ok := m.Get(client, server)
			if !ok {
				o = mesh.Failure("not measured")
			}

			var cell Cell
			var entry Entry
			switch {
			case o.Failed():
				cell = Cell{Kind: CellError, Err: o.Err}
				entry.Error = o.Err
				r.Summary.Failed++
			default:
				gbps := o.Gbps
				cell = Cell{Kind: CellValue, Gbps: gbps}
				entry.Gbps = &gbps
				if gbps < thresholdGbps {
					cell.Kind = CellLow
					entry.Low = true
					r.Summary.Low++
				}
				r.Summary.Measured++
				sum += gbps
				r.Summary.MinGbps = math.Min(r.Summary.MinGbps, gbps)
				r.Summary.MaxGbps = math.Max(r.Summary.MaxGbps, gbps)
			}

			r.Grid[i][j] = cell
			if r.Record[client] == nil {
				r.Record[client] = make(map[string]Entry, len(hosts)-1)
			}
			r.Record[client][server] = entry
		}
	}

	if r.Summary.Measured > 0 {
		r.Summary.MeanGbps = sum / float64(r.Summary.Measured)
	} else {
		r.Summary.MinGbps = 0
	}
	return r
}

// Failure is one unmeasured pair, for listing under the table.
type Failure struct {
	Client string
	Server string
	Err    string
}

// Failures lists the error cells in grid order.
func (r *Report) Failures() []Failure {
	var out []Failure
	for i, row := range r.Grid {
		for j, c := range row {
			if c.Kind == CellError {
				out = append(out, Failure{Client: r.Hosts[i], Server: r.Hosts[j], Err: c.Err})
			}
		}
	}
	return out
}

// Degraded reports whether any pair was low or failed.
func (r *Report) Degraded() bool {
	return r.Summary.Low > 0 || r.Summary.Failed > 0
}
