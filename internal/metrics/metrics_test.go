package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gberrors "github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(r *Recorder) {
	r.PhaseStarted(mesh.PhaseMeasure, 3)
	r.PairDone(mesh.Pair{Client: "a", Server: "b"}, mesh.Success(12), 2*time.Second)
	r.PairDone(mesh.Pair{Client: "b", Server: "a"}, mesh.Success(7.5), 2*time.Second)
	r.PairDone(mesh.Pair{Client: "a", Server: "c"}, mesh.Failure("timeout: no result within 5s"), 5*time.Second)
	r.PhaseDone(mesh.PhaseMeasure, 5*time.Second)
}

func TestRecorder_PairDone(t *testing.T) {
	r := NewRecorder(10)
	feed(r)

	assert.Equal(t, 12.0, testutil.ToFloat64(r.bandwidth.WithLabelValues("a", "b")))
	assert.Equal(t, 7.5, testutil.ToFloat64(r.bandwidth.WithLabelValues("b", "a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.low.WithLabelValues("a", "b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.low.WithLabelValues("b", "a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("a", "c")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.phase.WithLabelValues("measure")))

	// Failed pairs get no bandwidth series.
	assert.Equal(t, 2, testutil.CollectAndCount(r.bandwidth))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRecorder_ThresholdBoundary(t *testing.T) {
	r := NewRecorder(10)
	r.PairDone(mesh.Pair{Client: "a", Server: "b"}, mesh.Success(10), time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.low.WithLabelValues("a", "b")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder(10)
	feed(r)

	path := filepath.Join(t.TempDir(), "gpubench.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `gpubench_link_bandwidth_gbps{client="a",server="b"} 12`)
	assert.Contains(t, text, `gpubench_link_failures_total{client="a",server="c"} 1`)
	assert.Contains(t, text, "# TYPE gpubench_measure_duration_seconds histogram")
	assert.True(t, strings.HasSuffix(text, "\n"))

	err = r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	require.Error(t, err)
	assert.True(t, gberrors.IsCode(err, gberrors.ErrReport))
}
