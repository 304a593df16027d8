package cli

import (
	"time"

	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/spf13/cobra"
)

// NetbwFlags holds the flags of the netbw command. Each one overrides the
// matching config key only when set on the command line.
type NetbwFlags struct {
	Port           int
	Timeout        time.Duration
	Duration       time.Duration
	Threshold      float64
	Parallel       int
	PerServer      int
	Transport      string
	Tool           string
	Output         string
	Format         string
	MetricsFile    string
	ReadyWait      time.Duration
	NoProgress     bool
	FailOnDegraded bool
	Lock           bool
	LockWait       time.Duration
}

// AddNetbwFlags registers the measurement flags on a command.
func AddNetbwFlags(cmd *cobra.Command, f *NetbwFlags) {
	fl := cmd.Flags()
	fl.IntVarP(&f.Port, "port", "p", config.DefaultPort, "iperf3 server port")
	fl.DurationVarP(&f.Timeout, "timeout", "t", config.DefaultTimeout, "per-test timeout, including SSH setup")
	fl.DurationVarP(&f.Duration, "duration", "d", config.DefaultDuration, "iperf3 test length (-t)")
	fl.Float64Var(&f.Threshold, "threshold", config.DefaultThreshold, "highlight links below this many Gbps")
	fl.IntVar(&f.Parallel, "parallel", 0, "max concurrent tests (0 = all pairs at once)")
	fl.IntVar(&f.PerServer, "per-server", 0, "max concurrent clients per server (0 = unlimited)")
	fl.StringVar(&f.Transport, "transport", config.TransportSSH, "remote transport: ssh (built-in) or exec (system ssh)")
	fl.StringVar(&f.Tool, "tool", config.DefaultTool, "measurement tool: iperf3 or iperf3-json")
	fl.StringVarP(&f.Output, "output", "o", config.DefaultOutputFile, "results file")
	fl.StringVar(&f.Format, "format", "", "results format: json or yaml (default from file extension)")
	fl.StringVar(&f.MetricsFile, "metrics-file", "", "also write Prometheus textfile metrics here")
	fl.DurationVar(&f.ReadyWait, "ready-wait", 0, "wait up to this long for each server to come up (0 = don't check)")
	fl.BoolVar(&f.NoProgress, "no-progress", false, "print phase lines instead of the live progress view")
	fl.BoolVar(&f.FailOnDegraded, "fail-on-degraded", false, "exit 2 if any link is below threshold or failed")
	fl.BoolVar(&f.Lock, "lock", false, "take a per-port lock on every host before measuring")
	fl.DurationVar(&f.LockWait, "lock-wait", 0, "wait up to this long for a held lock (0 = fail at once)")
}

// Apply copies every flag the user set onto cfg.
func (f *NetbwFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "port", &cfg.Port, f.Port)
	override(cmd, "timeout", &cfg.Timeout, f.Timeout)
	override(cmd, "duration", &cfg.Duration, f.Duration)
	override(cmd, "threshold", &cfg.Threshold, f.Threshold)
	override(cmd, "parallel", &cfg.Parallel, f.Parallel)
	override(cmd, "per-server", &cfg.PerServer, f.PerServer)
	override(cmd, "transport", &cfg.Transport, f.Transport)
	override(cmd, "tool", &cfg.Tool, f.Tool)
	override(cmd, "output", &cfg.Output.File, config.ExpandPath(f.Output))
	override(cmd, "format", &cfg.Output.Format, f.Format)
	override(cmd, "metrics-file", &cfg.Output.MetricsFile, config.ExpandPath(f.MetricsFile))
	override(cmd, "ready-wait", &cfg.ReadyWait, f.ReadyWait)
	override(cmd, "lock", &cfg.Lock.Enabled, f.Lock)
	override(cmd, "lock-wait", &cfg.Lock.Wait, f.LockWait)
}

// CheckFlags holds the flags of the check command.
type CheckFlags struct {
	Timeout   time.Duration
	Parallel  int
	Transport string
}

// AddCheckFlags registers the check flags on a command.
func AddCheckFlags(cmd *cobra.Command, f *CheckFlags) {
	fl := cmd.Flags()
	fl.DurationVarP(&f.Timeout, "timeout", "t", config.DefaultTimeout, "per-host timeout")
	fl.IntVar(&f.Parallel, "parallel", 0, "max hosts checked at once (0 = all)")
	fl.StringVar(&f.Transport, "transport", config.TransportSSH, "remote transport: ssh (built-in) or exec (system ssh)")
}

// Apply copies every flag the user set onto cfg.
func (f *CheckFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "timeout", &cfg.Timeout, f.Timeout)
	override(cmd, "parallel", &cfg.Parallel, f.Parallel)
	override(cmd, "transport", &cfg.Transport, f.Transport)
}

// UnlockFlags holds the flags of the unlock command.
type UnlockFlags struct {
	Port      int
	Transport string
}

// AddUnlockFlags registers the unlock flags on a command.
func AddUnlockFlags(cmd *cobra.Command, f *UnlockFlags) {
	fl := cmd.Flags()
	fl.IntVarP(&f.Port, "port", "p", config.DefaultPort, "port whose lock to release")
	fl.StringVar(&f.Transport, "transport", config.TransportSSH, "remote transport: ssh (built-in) or exec (system ssh)")
}

// Apply copies every flag the user set onto cfg.
func (f *UnlockFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	override(cmd, "port", &cfg.Port, f.Port)
	override(cmd, "transport", &cfg.Transport, f.Transport)
}

func override[T any](cmd *cobra.Command, name string, dst *T, v T) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}

// resolveHosts picks the host list: positional args win over config.
func resolveHosts(args []string, cfg *config.Config) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Hosts
}
