package config

import (
	"math"
	"testing"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "port zero", mutate: func(c *Config) { c.Port = 0 }, errContains: "out of range"},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, errContains: "out of range"},
		{name: "port max", mutate: func(c *Config) { c.Port = 65535 }},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, errContains: "timeout must be positive"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, errContains: "timeout must be positive"},
		{name: "zero duration", mutate: func(c *Config) { c.Duration = 0 }, errContains: "duration must be positive"},
		{
			name:        "duration equals timeout",
			mutate:      func(c *Config) { c.Duration = 5 * time.Second; c.Timeout = 5 * time.Second },
			errContains: "isn't shorter than timeout",
		},
		{
			name:        "duration longer than timeout",
			mutate:      func(c *Config) { c.Duration = 10 * time.Second },
			errContains: "isn't shorter than timeout",
		},
		{name: "negative threshold", mutate: func(c *Config) { c.Threshold = -1 }, errContains: "threshold can't be negative"},
		{name: "zero threshold", mutate: func(c *Config) { c.Threshold = 0 }},
		{name: "NaN threshold", mutate: func(c *Config) { c.Threshold = math.NaN() }, errContains: "threshold must be a finite number"},
		{name: "infinite threshold", mutate: func(c *Config) { c.Threshold = math.Inf(1) }, errContains: "threshold must be a finite number"},
		{name: "negative parallel", mutate: func(c *Config) { c.Parallel = -2 }, errContains: "parallel can't be negative"},
		{name: "negative per server", mutate: func(c *Config) { c.PerServer = -1 }, errContains: "per_server"},
		{name: "zero sessions", mutate: func(c *Config) { c.SessionsPerHost = 0 }, errContains: "sessions_per_host"},
		{name: "negative ready wait", mutate: func(c *Config) { c.ReadyWait = -time.Second }, errContains: "ready_wait"},
		{name: "negative dial rate", mutate: func(c *Config) { c.DialRate = -1 }, errContains: "dial_rate"},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport = "telnet" }, errContains: "transport 'telnet'"},
		{name: "exec transport", mutate: func(c *Config) { c.Transport = TransportExec }},
		{name: "unknown tool", mutate: func(c *Config) { c.Tool = "nuttcp" }, errContains: "tool 'nuttcp'"},
		{name: "json tool", mutate: func(c *Config) { c.Tool = "iperf3-json" }},
		{name: "empty host", mutate: func(c *Config) { c.Hosts = []string{"a", " "} }, errContains: "hosts[1] is empty"},
		{name: "unknown color", mutate: func(c *Config) { c.Output.Color = "rainbow" }, errContains: "output.color"},
		{name: "unknown format", mutate: func(c *Config) { c.Output.Format = "csv" }, errContains: "output.format"},
		{name: "yaml format", mutate: func(c *Config) { c.Output.Format = "yaml" }},
		{name: "empty output file", mutate: func(c *Config) { c.Output.File = "" }, errContains: "output.file"},
		{name: "negative lock wait", mutate: func(c *Config) { c.Lock.Wait = -time.Second }, errContains: "lock.wait"},
		{name: "negative lock stale", mutate: func(c *Config) { c.Lock.Stale = -time.Second }, errContains: "lock.stale"},
		{name: "relative lock dir", mutate: func(c *Config) { c.Lock.Enabled = true; c.Lock.Dir = "locks" }, errContains: "lock.dir"},
		{name: "relative lock dir unused", mutate: func(c *Config) { c.Lock.Dir = "locks" }},
		{name: "lock enabled", mutate: func(c *Config) { c.Lock.Enabled = true; c.Lock.Wait = time.Minute }},
		{name: "future version", mutate: func(c *Config) { c.Version = CurrentConfigVersion + 1 }, errContains: "from the future"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestValidateRemote(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = time.Second
	cfg.Duration = 10 * time.Second
	cfg.Threshold = math.NaN()
	assert.NoError(t, ValidateRemote(cfg), "measurement settings aren't checked")
	assert.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.Timeout = 0
	err := ValidateRemote(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Contains(t, err.Error(), "timeout must be positive")
}
