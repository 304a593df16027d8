package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/mesh"
	"gopkg.in/yaml.v3"
)

// Output formats for the results file.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Envelope is the persisted results file.
type Envelope struct {
	RunID           string            `json:"run_id" yaml:"run_id"`
	Timestamp       time.Time         `json:"timestamp" yaml:"timestamp"`
	DurationSeconds float64           `json:"duration_seconds" yaml:"duration_seconds"`
	Tool            string            `json:"tool" yaml:"tool"`
	Port            int               `json:"port" yaml:"port"`
	ThresholdGbps   float64           `json:"threshold_gbps" yaml:"threshold_gbps"`
	Hosts           []string          `json:"hosts" yaml:"hosts"`
	Matrix          Record            `json:"matrix" yaml:"matrix"`
	Summary         Summary           `json:"summary" yaml:"summary"`
	ServerErrors    map[string]string `json:"server_errors,omitempty" yaml:"server_errors,omitempty"`
}

// RunInfo is the run metadata that does not live in the Report.
type RunInfo struct {
	Tool         string
	Port         int
	StartedAt    time.Time
	Duration     time.Duration
	ServerErrors map[string]error
}

// InfoFromResult pulls RunInfo out of a mesh result.
func InfoFromResult(res *mesh.Result, tool string, port int) RunInfo {
	return RunInfo{
		Tool:         tool,
		Port:         port,
		StartedAt:    res.StartedAt,
		Duration:     res.Duration,
		ServerErrors: res.ServerErrors,
	}
}

// NewEnvelope wraps a report with a fresh run ID.
func NewEnvelope(r *Report, info RunInfo) Envelope {
	env := Envelope{
		RunID:           uuid.NewString(),
		Timestamp:       info.StartedAt.UTC(),
		DurationSeconds: info.Duration.Seconds(),
		Tool:            info.Tool,
		Port:            info.Port,
		ThresholdGbps:   r.ThresholdGbps,
		Hosts:           r.Hosts,
		Matrix:          r.Record,
		Summary:         r.Summary,
	}
	if len(info.ServerErrors) > 0 {
		env.ServerErrors = make(map[string]string, len(info.ServerErrors))
		for host, err := range info.ServerErrors {
			env.ServerErrors[host] = errors.Summary(err)
		}
	}
	return env
}

// FormatFor picks a format: explicit wins, then the file extension, then JSON.
func FormatFor(path, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Formats lists the supported formats.
func Formats() []string {
	return []string{FormatJSON, FormatYAML}
}

// Encode writes e to w in format.
func (e Envelope) Encode(w io.Writer, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(e)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.New(errors.ErrReport,
		fmt.Sprintf("Unknown output format %q", format),
		"Use one of: "+strings.Join(Formats(), ", "))
}

// Write saves e to path, replacing any existing file only once the new
// content is fully written.
func Write(path, format string, e Envelope) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrReport,
			"Couldn't write results to "+path,
			"Check that the directory exists and is writable.")
	}
	defer os.Remove(tmp.Name())

	if err := e.Encode(tmp, format); err != nil {
		tmp.Close()
		if errors.IsCode(err, errors.ErrReport) {
			return err
		}
		return errors.WrapWithCode(err, errors.ErrReport, "Couldn't encode results", "")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrReport, "Couldn't write results to "+path, "")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrReport, "Couldn't write results to "+path, "")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapWithCode(err, errors.ErrReport,
			"Couldn't write results to "+path,
			"Check that the directory exists and is writable.")
	}
	return nil
}
