package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/iperf"
	"github.com/rileyhilliard/gpubench/internal/lock"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/mesh"
	"github.com/rileyhilliard/gpubench/internal/metrics"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"github.com/rileyhilliard/gpubench/internal/report"
	"github.com/rileyhilliard/gpubench/internal/ui"
	"github.com/rileyhilliard/gpubench/pkg/sshutil"
	"github.com/spf13/cobra"
)

var netbwFlags NetbwFlags

// netbwCmd measures the full bandwidth matrix
var netbwCmd = &cobra.Command{
	Use:   "netbw [hosts...]",
	Short: "Measure bandwidth between every pair of hosts",
	Long: `Start an iperf3 server on every host, run a client from every host
against every other host, and print the resulting Gbps matrix.

Rows are clients and columns are servers. The diagonal is marked X,
pairs that could not be measured are marked ERR and listed below the
table, and links under --threshold are highlighted. The full matrix is
saved to --output.

Hosts come from the arguments, then the hosts key in .gpubench.yaml.
With neither and an interactive terminal, you pick from ~/.ssh/config.

Examples:
  gpubench netbw gpu-01 gpu-02 gpu-03
  gpubench netbw --parallel 8 --per-server 1 gpu-0{1..8}
  gpubench netbw --threshold 100 --output results.yaml
  gpubench netbw --json > matrix.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		netbwFlags.Apply(cmd, cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}

		hosts, err := pickHostsIfNeeded(resolveHosts(args, cfg))
		if err != nil {
			return err
		}

		tool, err := iperf.ByName(cfg.Tool)
		if err != nil {
			return err
		}

		showProgress := !machineMode && !netbwFlags.NoProgress && ui.IsTerminal(os.Stderr)
		log := logger.Default()
		if showProgress && !verbose {
			// The live view reports failures itself.
			log = logger.Noop()
		}

		runner, closeRunner, err := newRunner(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = closeRunner() }()

		run := &netbwRun{
			cfg:            cfg,
			hosts:          hosts,
			runner:         runner,
			tool:           tool,
			out:            cmd.OutOrStdout(),
			log:            log,
			jsonMode:       machineMode,
			failOnDegraded: netbwFlags.FailOnDegraded,
		}

		switch {
		case showProgress:
			progress := ui.NewMeshProgress(os.Stderr)
			progress.Start()
			run.observer = progress
			run.afterRun = progress.Stop
		case !machineMode:
			run.observer = ui.NewPhaseDisplay(cmd.OutOrStdout())
		}

		return run.execute(cmd.Context())
	},
}

func init() {
	AddNetbwFlags(netbwCmd, &netbwFlags)
	rootCmd.AddCommand(netbwCmd)
}

// netbwRun is one measurement run with every collaborator resolved.
type netbwRun struct {
	cfg            *config.Config
	hosts          []string
	runner         remote.Runner
	tool           iperf.Tool
	out            io.Writer
	observer       mesh.Observer
	afterRun       func()
	log            logger.Logger
	jsonMode       bool
	failOnDegraded bool
}

// execute runs the mesh, saves the results, and prints them. Individual
// pair failures do not make it return an error.
func (r *netbwRun) execute(ctx context.Context) error {
	cfg := r.cfg

	observers := mesh.Observers{}
	if r.observer != nil {
		observers = append(observers, r.observer)
	}
	var recorder *metrics.Recorder
	if cfg.Output.MetricsFile != "" {
		recorder = metrics.NewRecorder(cfg.Threshold)
		observers = append(observers, recorder)
	}

	m := mesh.New(r.runner, r.tool, mesh.Options{
		Port:      cfg.Port,
		Timeout:   cfg.Timeout,
		Duration:  cfg.Duration,
		Parallel:  cfg.Parallel,
		PerServer: cfg.PerServer,
		ReadyWait: cfg.ReadyWait,
	}, r.log, observers)

	if cfg.Lock.Enabled {
		release, err := r.lockHosts(ctx)
		if err != nil {
			if r.afterRun != nil {
				r.afterRun()
			}
			return err
		}
		defer release()
	}

	res, err := m.Run(ctx, r.hosts)
	if r.afterRun != nil {
		r.afterRun()
	}
	if err != nil {
		return err
	}

	rep := report.Assemble(res.Matrix, res.Hosts, cfg.Threshold)
	env := report.NewEnvelope(rep, report.InfoFromResult(res, r.tool.Name(), cfg.Port))
	format := report.FormatFor(cfg.Output.File, cfg.Output.Format)
	if err := report.Write(cfg.Output.File, format, env); err != nil {
		return err
	}
	if recorder != nil {
		if err := recorder.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}

	if r.jsonMode {
		if err := WriteJSONSuccess(r.out, env); err != nil {
			return errors.WrapWithCode(err, errors.ErrReport, "Failed to write JSON output", "")
		}
	} else {
		r.printReport(rep)
	}

	if ctx.Err() != nil {
		r.log.Warn("run interrupted; results are partial")
		return errors.NewExitError(ExitInterrupted)
	}
	if r.failOnDegraded && rep.Degraded() {
		return errors.NewExitError(2)
	}
	return nil
}

// lockHosts takes the port lock on every host and returns the release func.
func (r *netbwRun) lockHosts(ctx context.Context) (func(), error) {
	hosts, _ := mesh.Dedupe(r.hosts)
	locks, err := lock.AcquireAll(ctx, r.runner, hosts, lock.Name(r.cfg.Port), lock.Options{
		Dir:            r.cfg.Lock.Dir,
		Wait:           r.cfg.Lock.Wait,
		Stale:          r.cfg.Lock.Stale,
		CommandTimeout: r.cfg.Timeout,
		Command:        "gpubench netbw",
		Logger:         r.log,
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("holding %s on %d hosts", lock.Name(r.cfg.Port), len(locks))
	return func() {
		if err := locks.Release(ctx); err != nil {
			r.log.Warn("%s", errors.Summary(err))
		}
	}, nil
}

func (r *netbwRun) printReport(rep *report.Report) {
	styles := report.DefaultStyles()

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, report.RenderTable(rep, styles))
	fmt.Fprintln(r.out, report.RenderLegend(rep, styles))
	if failures := report.RenderFailures(rep, styles); failures != "" {
		fmt.Fprintln(r.out)
		fmt.Fprint(r.out, failures)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, report.RenderSummary(rep, styles))

	saved := lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess)
	fmt.Fprintf(r.out, "%s Results saved to %s\n", saved, r.cfg.Output.File)
	if r.cfg.Output.MetricsFile != "" {
		fmt.Fprintf(r.out, "%s Metrics written to %s\n", saved, r.cfg.Output.MetricsFile)
	}
}

// pickHostsIfNeeded returns hosts unchanged when there are any. Otherwise it
// offers an ssh_config picker on an interactive terminal.
func pickHostsIfNeeded(hosts []string) ([]string, error) {
	if len(hosts) > 0 {
		return hosts, nil
	}

	noHosts := errors.New(errors.ErrConfig,
		"No hosts to measure",
		"Pass hosts as arguments or set `hosts` in .gpubench.yaml.")
	if machineMode || !ui.IsTerminal(os.Stdin) || !ui.IsTerminal(os.Stderr) {
		return nil, noHosts
	}

	entries, err := sshutil.ParseSSHConfig()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't read ~/.ssh/config",
			"Pass hosts as arguments instead.")
	}
	return ui.PickHosts(entries, os.Stdin, os.Stderr)
}
