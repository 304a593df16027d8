package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	remotetest "github.com/rileyhilliard/gpubench/internal/remote/testing"
	"github.com/rileyhilliard/gpubench/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHosts(t *testing.T) {
	f := remotetest.NewFakeRunner()
	f.On("", `^iperf3 --version$`, remotetest.Response{
		Stdout: "iperf 3.16 (cJSON 1.7.15)\nLinux gpu-01 6.8.0 #1 SMP x86_64\n",
	})
	f.On("gpu-02", `^iperf3 --version$`, remotetest.Response{
		Stderr: "bash: iperf3: command not found\n", ExitCode: 127,
	})
	f.Unreachable("gpu-03")
	f.On("gpu-04", `^iperf3 --version$`, remotetest.Response{Delay: time.Second})

	hosts := []string{"gpu-01", "gpu-02", "gpu-03", "gpu-04"}
	rows := checkHosts(context.Background(), f, hosts, 100*time.Millisecond, 2)
	require.Len(t, rows, 4)

	assert.Equal(t, "gpu-01", rows[0].Host)
	assert.True(t, rows[0].OK)
	assert.Equal(t, "iperf 3.16 (cJSON 1.7.15)", rows[0].Detail)
	assert.NotEqual(t, "-", rows[0].Latency)

	assert.False(t, rows[1].OK)
	assert.Equal(t, "iperf3 not installed", rows[1].Detail)

	assert.False(t, rows[2].OK)
	assert.Equal(t, "-", rows[2].Latency)
	assert.Contains(t, rows[2].Detail, "connection refused")

	assert.False(t, rows[3].OK)
	assert.Equal(t, "-", rows[3].Latency)
	assert.Contains(t, rows[3].Detail, "timed out")

	assert.LessOrEqual(t, f.MaxInFlight(), 2)
}

func TestPrintCheck(t *testing.T) {
	rows := []ui.CheckRow{
		{Host: "gpu-01", OK: true, Latency: "12ms", Detail: "iperf 3.16"},
		{Host: "gpu-02", OK: false, Latency: "-", Detail: "connection refused"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		err := printCheck(&buf, rows, false)

		code, ok := errors.GetExitCode(err)
		require.True(t, ok)
		assert.Equal(t, 2, code)
		assert.Contains(t, buf.String(), "gpu-01")
		assert.Contains(t, buf.String(), "iperf 3.16")
		assert.Contains(t, buf.String(), "1 of 2 hosts not ready")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		_ = printCheck(&buf, rows, true)

		var env struct {
			Success bool        `json:"success"`
			Data    []checkJSON `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
		assert.True(t, env.Success)
		require.Len(t, env.Data, 2)
		assert.Equal(t, int64(12), env.Data[0].LatencyMs)
		assert.Zero(t, env.Data[1].LatencyMs)
		assert.False(t, env.Data[1].OK)
	})

	t.Run("all ready", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printCheck(&buf, rows[:1], false))
		assert.Contains(t, buf.String(), "1 host ready")
	})
}
