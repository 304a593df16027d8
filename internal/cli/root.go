package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

// ExitInterrupted is returned when a run is cancelled by a signal.
const ExitInterrupted = 130

var rootCmd = &cobra.Command{
	Use:   "gpubench",
	Short: "Measure network bandwidth between GPU cluster nodes",
	Long: `gpubench measures point-to-point network throughput between every
ordered pair of hosts in a cluster and prints the result as a matrix.

An iperf3 server is started on each host over SSH, every host then runs
a client against every other host, and the servers are stopped again.
Links below the threshold are highlighted, failures are listed, and the
full matrix is written to a results file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .gpubench.yaml, then ~/.config/gpubench/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "print machine-readable JSON instead of tables")
}

// Execute runs the root command and exits with the right code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	os.Exit(handleError(err, os.Stdout, os.Stderr))
}

// handleError reports err the way the current mode expects and returns the
// process exit code.
func handleError(err error, stdout, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	if code, ok := errors.GetExitCode(err); ok {
		return code
	}

	if machineMode {
		_ = WriteJSONFromError(stdout, err)
		return 1
	}

	var gbErr *errors.Error
	if stderrors.As(err, &gbErr) {
		// Structured errors carry their own symbol and suggestion.
		fmt.Fprint(stderr, gbErr.Error())
		return 1
	}
	fmt.Fprintln(stderr, lipgloss.NewStyle().Foreground(ui.ColorError).Render(ui.SymbolFail)+" "+err.Error())
	return 1
}

// loadConfig finds, loads, and validates the config. Color is configured
// here so every command honours output.color and --no-color.
func loadConfig() (*config.Config, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		logger.Default().Debug("loaded config from %s", path)
	}

	ui.ConfigureColor(cfg.Output.Color, noColor)
	return cfg, nil
}
