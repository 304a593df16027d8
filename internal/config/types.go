package config

import "time"

// CurrentConfigVersion is the config schema version written by this build.
const CurrentConfigVersion = 1

// Transport names accepted by the transport key.
const (
	TransportSSH  = "ssh"
	TransportExec = "exec"
)

// Defaults for a measurement run.
const (
	DefaultPort            = 5201
	DefaultTimeout         = 5 * time.Second
	DefaultDuration        = 2 * time.Second
	DefaultThreshold       = 10.0
	DefaultSessionsPerHost = 8
	DefaultTool            = "iperf3"
	DefaultConnectTimeout  = 10 * time.Second
	DefaultOutputFile      = "network_bandwidth_results.json"
	DefaultLockDir         = "/tmp"
	DefaultLockStale       = 10 * time.Minute
)

// Config is the gpubench configuration, read from .gpubench.yaml.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	// Hosts is the default host list when none are given on the command line.
	Hosts []string `mapstructure:"hosts" yaml:"hosts"`

	Port      int           `mapstructure:"port" yaml:"port"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Duration  time.Duration `mapstructure:"duration" yaml:"duration"`
	Threshold float64       `mapstructure:"threshold" yaml:"threshold"`

	// Parallel caps concurrent measurements. Zero means one per pair.
	Parallel int `mapstructure:"parallel" yaml:"parallel"`
	// PerServer caps concurrent clients against one server. Zero is unbounded.
	PerServer       int `mapstructure:"per_server" yaml:"per_server"`
	SessionsPerHost int `mapstructure:"sessions_per_host" yaml:"sessions_per_host"`

	Transport string        `mapstructure:"transport" yaml:"transport"`
	Tool      string        `mapstructure:"tool" yaml:"tool"`
	ReadyWait time.Duration `mapstructure:"ready_wait" yaml:"ready_wait"`
	// DialRate limits new SSH connections per second. Zero is unlimited.
	DialRate float64 `mapstructure:"dial_rate" yaml:"dial_rate"`

	SSH    SSHConfig    `mapstructure:"ssh" yaml:"ssh"`
	Output OutputConfig `mapstructure:"output" yaml:"output"`
	Lock   LockConfig   `mapstructure:"lock" yaml:"lock"`
}

// SSHConfig controls the built-in SSH transport.
type SSHConfig struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	StrictHostKey  bool          `mapstructure:"strict_host_key" yaml:"strict_host_key"`
}

// OutputConfig controls where results go and how the terminal looks.
type OutputConfig struct {
	File string `mapstructure:"file" yaml:"file"`
	// Format is json or yaml. Empty picks from the file extension.
	Format      string `mapstructure:"format" yaml:"format"`
	Color       string `mapstructure:"color" yaml:"color"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// LockConfig controls the per-port run lock taken on every host.
type LockConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Wait is how long to wait for a held lock. Zero fails at once.
	Wait time.Duration `mapstructure:"wait" yaml:"wait"`
	// Stale breaks locks older than this. Zero never breaks one.
	Stale time.Duration `mapstructure:"stale" yaml:"stale"`
	Dir   string        `mapstructure:"dir" yaml:"dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentConfigVersion,
		Hosts:           []string{},
		Port:            DefaultPort,
		Timeout:         DefaultTimeout,
		Duration:        DefaultDuration,
		Threshold:       DefaultThreshold,
		SessionsPerHost: DefaultSessionsPerHost,
		Transport:       TransportSSH,
		Tool:            DefaultTool,
		SSH: SSHConfig{
			ConnectTimeout: DefaultConnectTimeout,
			StrictHostKey:  true,
		},
		Output: OutputConfig{
			File:  DefaultOutputFile,
			Color: "auto",
		},
		Lock: LockConfig{
			Stale: DefaultLockStale,
			Dir:   DefaultLockDir,
		},
	}
}
