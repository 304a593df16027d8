package testing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rileyhilliard/gpubench/internal/remote"
	"github.com/stretchr/testify/assert"
)

func TestFakeRunner_Rules(t *testing.T) {
	f := NewFakeRunner()
	f.On("", `^iperf3 -c`, Response{Stdout: "any host"})
	f.On("gpu-02", `^iperf3 -c`, Response{Stdout: "gpu-02 only"})

	ctx := context.Background()
	assert.Equal(t, "any host", f.Run(ctx, "gpu-01", "iperf3 -c gpu-03", time.Second).Stdout)
	assert.Equal(t, "gpu-02 only", f.Run(ctx, "gpu-02", "iperf3 -c gpu-03", time.Second).Stdout)

	res := f.Run(ctx, "gpu-01", "nvidia-smi", time.Second)
	assert.Equal(t, 127, res.ExitCode)
	assert.Equal(t, 2, f.CallsMatching(`^iperf3`))
	assert.Len(t, f.Calls(), 3)
}

func TestFakeRunner_UnreachableAndErrors(t *testing.T) {
	f := NewFakeRunner()
	f.On("", `.*`, Response{Stdout: "ok"})
	f.On("gpu-03", `^boom$`, Response{Err: errors.New("session closed")})
	f.Unreachable("gpu-02")

	ctx := context.Background()
	res := f.Run(ctx, "gpu-02", "hostname", time.Second)
	assert.Equal(t, remote.StatusError, res.ExitCode)
	assert.Contains(t, res.Detail(), "connection refused")

	res = f.Run(ctx, "gpu-03", "boom", time.Second)
	assert.Equal(t, remote.StatusError, res.ExitCode)
	assert.EqualError(t, res.Err, "session closed")
}

func TestFakeRunner_DelayAndTimeout(t *testing.T) {
	f := NewFakeRunner()
	f.On("", `^slow$`, Response{Delay: time.Minute})
	f.On("", `^quick$`, Response{Delay: 10 * time.Millisecond, Stdout: "done"})

	start := time.Now()
	res := f.Run(context.Background(), "gpu-01", "slow", 30*time.Millisecond)
	assert.True(t, res.TimedOut)
	assert.Equal(t, remote.StatusTimeout, res.ExitCode)
	assert.Less(t, time.Since(start), time.Second)

	res = f.Run(context.Background(), "gpu-01", "quick", time.Second)
	assert.True(t, res.OK())
	assert.Equal(t, "done", res.Stdout)
}

func TestFakeRunner_MaxInFlight(t *testing.T) {
	f := NewFakeRunner()
	f.On("", `.*`, Response{Delay: 200 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Run(context.Background(), "gpu-01", "x", time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, f.MaxInFlight())
}
