package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/mesh"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"github.com/rileyhilliard/gpubench/internal/ui"
	"github.com/rileyhilliard/gpubench/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// versionProbe is run on every host by check.
const versionProbe = "iperf3 --version"

var checkFlags CheckFlags

// checkCmd verifies every host is reachable and has iperf3
var checkCmd = &cobra.Command{
	Use:   "check [hosts...]",
	Short: "Verify SSH access and iperf3 on each host",
	Long: `Connect to every host and run 'iperf3 --version', then print a table
of which hosts are ready for a netbw run.

Examples:
  gpubench check gpu-01 gpu-02 gpu-03
  gpubench check --transport exec
  gpubench check --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyCheckFlags(cmd, &checkFlags, cfg); err != nil {
			return err
		}

		hosts, _ := mesh.Dedupe(resolveHosts(args, cfg))
		if len(hosts) == 0 {
			return errors.New(errors.ErrConfig,
				"No hosts to check",
				"Pass hosts as arguments or set `hosts` in .gpubench.yaml.")
		}

		log := logger.Default()
		runner, closeRunner, err := newRunner(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = closeRunner() }()

		rows := checkHosts(cmd.Context(), runner, hosts, cfg.Timeout, cfg.Parallel)
		return printCheck(cmd.OutOrStdout(), rows, machineMode)
	},
}

func init() {
	AddCheckFlags(checkCmd, &checkFlags)
	rootCmd.AddCommand(checkCmd)
}

// applyCheckFlags overrides cfg with the flags the user set, then validates
// what a probe run needs.
func applyCheckFlags(cmd *cobra.Command, f *CheckFlags, cfg *config.Config) error {
	f.Apply(cmd, cfg)
	return config.ValidateRemote(cfg)
}

// checkHosts probes every host concurrently and returns one row per host in
// input order.
func checkHosts(ctx context.Context, runner remote.Runner, hosts []string, timeout time.Duration, parallel int) []ui.CheckRow {
	rows := make([]ui.CheckRow, len(hosts))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, host := range hosts {
		g.Go(func() error {
			rows[i] = checkHost(ctx, runner, host, timeout)
			return nil
		})
	}
	_ = g.Wait()

	return rows
}

func checkHost(ctx context.Context, runner remote.Runner, host string, timeout time.Duration) ui.CheckRow {
	res := runner.Run(ctx, host, versionProbe, timeout)
	row := ui.CheckRow{Host: host, OK: res.OK(), Latency: "-"}

	switch {
	case res.OK():
		row.Latency = res.Duration.Round(time.Millisecond).String()
		row.Detail = strings.TrimSpace(firstLine(res.Stdout))
	case res.ExitCode == 127:
		row.Latency = res.Duration.Round(time.Millisecond).String()
		row.Detail = "iperf3 not installed"
	default:
		if res.ExitCode >= 0 {
			row.Latency = res.Duration.Round(time.Millisecond).String()
		}
		row.Detail = res.Detail()
	}
	return row
}

// checkJSON is one host in check --json output.
type checkJSON struct {
	Host      string `json:"host"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
	Detail    string `json:"detail"`
}

func printCheck(w io.Writer, rows []ui.CheckRow, jsonMode bool) error {
	failed := 0
	for _, r := range rows {
		if !r.OK {
			failed++
		}
	}

	if jsonMode {
		out := make([]checkJSON, len(rows))
		for i, r := range rows {
			out[i] = checkJSON{Host: r.Host, OK: r.OK, Detail: r.Detail}
			if d, err := time.ParseDuration(r.Latency); err == nil {
				out[i].LatencyMs = d.Milliseconds()
			}
		}
		if err := WriteJSONSuccess(w, out); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, ui.RenderCheckTable(rows))
		if failed == 0 {
			fmt.Fprintf(w, "%s %s ready\n", ui.SymbolSuccess, util.Plural(len(rows), "host"))
		} else {
			fmt.Fprintf(w, "%s %d of %s not ready\n", ui.SymbolFail, failed, util.Plural(len(rows), "host"))
		}
	}

	if failed > 0 {
		return errors.NewExitError(2)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
