package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rileyhilliard/gpubench/internal/errors"
)

var (
	validTransports = map[string]bool{TransportSSH: true, TransportExec: true}
	validTools      = map[string]bool{"iperf3": true, "iperf3-json": true}
	validFormats    = map[string]bool{"json": true, "yaml": true, "": true}
	validColors     = map[string]bool{"auto": true, "always": true, "never": true, "": true}
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if err := ValidateRemote(cfg); err != nil {
		return err
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("port %d is out of range", cfg.Port),
			"Use a TCP port between 1 and 65535")
	}

	if cfg.Duration <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("duration must be positive, got %v", cfg.Duration),
			"Try something like '2s'")
	}
	if cfg.Duration >= cfg.Timeout {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("duration (%v) isn't shorter than timeout (%v) - every test would time out", cfg.Duration, cfg.Timeout),
			"Raise timeout or lower duration")
	}
	if cfg.ReadyWait < 0 {
		return errors.New(errors.ErrConfig,
			"ready_wait can't be negative",
			"Use 0 to skip the readiness check")
	}

	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("threshold must be a finite number, got %g", cfg.Threshold),
			"Set threshold in Gbit/s, e.g. --threshold 10")
	}
	if cfg.Threshold < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("threshold can't be negative, got %g", cfg.Threshold),
			"Use 0 to disable low-bandwidth highlighting")
	}
	if cfg.PerServer < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("per_server can't be negative, got %d", cfg.PerServer),
			"Use 0 for no per-server limit")
	}
	if !validTools[cfg.Tool] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("tool '%s' isn't valid", cfg.Tool),
			"Use 'iperf3' or 'iperf3-json'")
	}
	if err := validateLock(cfg.Lock); err != nil {
		return err
	}

	return validateOutput(cfg.Output)
}

// ValidateRemote checks only what running commands on the hosts needs:
// version, timeout, parallelism, transport, SSH, and hosts. check uses it
// instead of Validate since it never starts a measurement.
func ValidateRemote(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but gpubench only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade gpubench or lower the version key")
	}

	if cfg.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("timeout must be positive, got %v", cfg.Timeout),
			"Try something like '5s' or '30s'")
	}
	if cfg.Parallel < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("parallel can't be negative, got %d", cfg.Parallel),
			"Use 0 to run every pair at once")
	}
	if cfg.SessionsPerHost < 1 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("sessions_per_host must be at least 1, got %d", cfg.SessionsPerHost),
			"sshd usually allows 10 sessions per connection")
	}
	if cfg.DialRate < 0 {
		return errors.New(errors.ErrConfig,
			"dial_rate can't be negative",
			"Use 0 for unlimited dials")
	}

	if !validTransports[cfg.Transport] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("transport '%s' isn't valid", cfg.Transport),
			"Use 'ssh' or 'exec'")
	}
	if cfg.SSH.ConnectTimeout < 0 {
		return errors.New(errors.ErrConfig,
			"ssh.connect_timeout can't be negative",
			"Try something like '10s'")
	}

	for i, h := range cfg.Hosts {
		if strings.TrimSpace(h) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("hosts[%d] is empty", i),
				"Remove the entry or add a host name")
		}
	}

	return nil
}

// validateLock checks lock configuration.
func validateLock(l LockConfig) error {
	if l.Wait < 0 {
		return errors.New(errors.ErrConfig,
			"lock.wait can't be negative",
			"Use 0 to fail as soon as a lock is held")
	}
	if l.Stale < 0 {
		return errors.New(errors.ErrConfig,
			"lock.stale can't be negative",
			"Use 0 to never break a held lock")
	}
	if l.Enabled && !strings.HasPrefix(l.Dir, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("lock.dir '%s' isn't an absolute path", l.Dir),
			"Use a directory every host has, like /tmp")
	}
	return nil
}

// validateOutput checks output configuration.
func validateOutput(out OutputConfig) error {
	if !validColors[out.Color] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("output.color '%s' isn't valid", out.Color),
			"Use 'auto', 'always', or 'never'")
	}
	if !validFormats[out.Format] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("output.format '%s' isn't valid", out.Format),
			"Use 'json' or 'yaml'")
	}
	if strings.TrimSpace(out.File) == "" {
		return errors.New(errors.ErrConfig,
			"output.file is empty",
			"Set a path for the results file")
	}
	return nil
}
