package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNetbwTestCmd(t *testing.T, args ...string) (*cobra.Command, *NetbwFlags) {
	t.Helper()
	var f NetbwFlags
	cmd := &cobra.Command{Use: "netbw"}
	AddNetbwFlags(cmd, &f)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &f
}

func TestNetbwFlags_OnlyChangedOverride(t *testing.T) {
	cmd, f := newNetbwTestCmd(t, "--port", "6000", "--per-server", "1")

	cfg := config.DefaultConfig()
	cfg.Threshold = 100
	cfg.Timeout = 30 * time.Second

	f.Apply(cmd, cfg)

	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, 1, cfg.PerServer)
	// Unset flags keep the config file's values, not the flag defaults.
	assert.Equal(t, 100.0, cfg.Threshold)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestNetbwFlags_AllOverrides(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	cmd, f := newNetbwTestCmd(t,
		"-p", "5301",
		"-t", "20s",
		"-d", "10s",
		"--threshold", "40",
		"--parallel", "4",
		"--per-server", "2",
		"--transport", "exec",
		"--tool", "iperf3-json",
		"-o", "~/bw.yaml",
		"--format", "yaml",
		"--metrics-file", "/tmp/gpubench.prom",
		"--ready-wait", "3s",
		"--no-progress",
		"--fail-on-degraded",
		"--lock",
		"--lock-wait", "30s",
	)

	cfg := config.DefaultConfig()
	f.Apply(cmd, cfg)

	assert.Equal(t, 5301, cfg.Port)
	assert.Equal(t, 20*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Duration)
	assert.Equal(t, 40.0, cfg.Threshold)
	assert.Equal(t, 4, cfg.Parallel)
	assert.Equal(t, 2, cfg.PerServer)
	assert.Equal(t, config.TransportExec, cfg.Transport)
	assert.Equal(t, "iperf3-json", cfg.Tool)
	assert.Equal(t, filepath.Join(home, "bw.yaml"), cfg.Output.File)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.Equal(t, "/tmp/gpubench.prom", cfg.Output.MetricsFile)
	assert.Equal(t, 3*time.Second, cfg.ReadyWait)
	assert.True(t, f.NoProgress)
	assert.True(t, f.FailOnDegraded)
	assert.True(t, cfg.Lock.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Lock.Wait)
	assert.NoError(t, config.Validate(cfg))
}

func TestNetbwFlags_DefaultsMatchConfig(t *testing.T) {
	_, f := newNetbwTestCmd(t)
	d := config.DefaultConfig()

	assert.Equal(t, d.Port, f.Port)
	assert.Equal(t, d.Timeout, f.Timeout)
	assert.Equal(t, d.Duration, f.Duration)
	assert.Equal(t, d.Threshold, f.Threshold)
	assert.Equal(t, d.Transport, f.Transport)
	assert.Equal(t, d.Tool, f.Tool)
	assert.Equal(t, d.Output.File, f.Output)
}

func TestUnlockFlags_Apply(t *testing.T) {
	var f UnlockFlags
	cmd := &cobra.Command{Use: "unlock"}
	AddUnlockFlags(cmd, &f)
	require.NoError(t, cmd.ParseFlags([]string{"-p", "6000"}))

	cfg := config.DefaultConfig()
	f.Apply(cmd, cfg)

	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, config.TransportSSH, cfg.Transport)
}

func TestCheckFlags_Apply(t *testing.T) {
	var f CheckFlags
	cmd := &cobra.Command{Use: "check"}
	AddCheckFlags(cmd, &f)
	require.NoError(t, cmd.ParseFlags([]string{"--timeout", "1s", "--transport", "exec"}))

	cfg := config.DefaultConfig()
	cfg.Parallel = 3
	f.Apply(cmd, cfg)

	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, config.TransportExec, cfg.Transport)
	assert.Equal(t, 3, cfg.Parallel)
}

func TestApplyCheckFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		mutate      func(*config.Config)
		errContains string
	}{
		{name: "defaults"},
		{name: "timeout shorter than duration", args: []string{"--timeout", "1s"}},
		{name: "zero timeout flag", args: []string{"--timeout", "0s"}, errContains: "timeout must be positive"},
		{name: "negative parallel flag", args: []string{"--parallel", "-1"}, errContains: "parallel can't be negative"},
		{name: "bad transport flag", args: []string{"--transport", "telnet"}, errContains: "transport 'telnet' isn't valid"},
		{
			name:   "flag fixes config",
			args:   []string{"--timeout", "3s"},
			mutate: func(c *config.Config) { c.Timeout = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f CheckFlags
			cmd := &cobra.Command{Use: "check"}
			AddCheckFlags(cmd, &f)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := config.DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := applyCheckFlags(cmd, &f, cfg)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestResolveHosts(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Hosts = []string{"cfg-1", "cfg-2"}

	assert.Equal(t, []string{"a", "b"}, resolveHosts([]string{"a", "b"}, cfg))
	assert.Equal(t, []string{"cfg-1", "cfg-2"}, resolveHosts(nil, cfg))
}

func TestNewRunner(t *testing.T) {
	cfg := config.DefaultConfig()

	runner, closeFn, err := newRunner(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, runner)
	assert.NoError(t, closeFn())

	cfg.Transport = config.TransportExec
	cfg.SSH.StrictHostKey = false
	runner, closeFn, err = newRunner(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, runner)
	assert.NoError(t, closeFn())

	cfg.Transport = "carrier-pigeon"
	_, _, err = newRunner(cfg, nil)
	assert.Error(t, err)
}
