package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/lock"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/mesh"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"github.com/rileyhilliard/gpubench/internal/ui"
	"github.com/rileyhilliard/gpubench/internal/util"
	"github.com/spf13/cobra"
)

var unlockFlags UnlockFlags

// unlockCmd force-releases the port lock left behind by a dead run
var unlockCmd = &cobra.Command{
	Use:   "unlock [hosts...]",
	Short: "Release the netbw port lock on each host",
	Long: `Remove the lock netbw --lock takes on every host, no matter who holds
it. Use this when a run was killed before it could clean up.

Examples:
  gpubench unlock gpu-01 gpu-02
  gpubench unlock --port 5301`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		unlockFlags.Apply(cmd, cfg)
		if err := config.Validate(cfg); err != nil {
			return err
		}

		hosts, _ := mesh.Dedupe(resolveHosts(args, cfg))
		if len(hosts) == 0 {
			return errors.New(errors.ErrConfig,
				"No hosts to unlock",
				"Pass hosts as arguments or set `hosts` in .gpubench.yaml.")
		}

		log := logger.Default()
		runner, closeRunner, err := newRunner(cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = closeRunner() }()

		return unlockHosts(cmd.Context(), cmd.OutOrStdout(), runner, hosts, cfg)
	},
}

func init() {
	AddUnlockFlags(unlockCmd, &unlockFlags)
	rootCmd.AddCommand(unlockCmd)
}

type unlockResult int

const (
	unlockResultSuccess unlockResult = iota
	unlockResultNotLocked
	unlockResultFailed
)

// unlockHosts releases the port lock on each host in turn and prints a line
// per host.
func unlockHosts(ctx context.Context, w io.Writer, runner remote.Runner, hosts []string, cfg *config.Config) error {
	name := lock.Name(cfg.Port)
	opts := lock.Options{Dir: cfg.Lock.Dir, CommandTimeout: cfg.Timeout}

	var successCount, notLockedCount, failCount int
	for _, host := range hosts {
		switch unlockHost(ctx, w, runner, host, name, opts) {
		case unlockResultSuccess:
			successCount++
		case unlockResultNotLocked:
			notLockedCount++
		case unlockResultFailed:
			failCount++
		}
	}

	if len(hosts) > 1 {
		fmt.Fprintln(w)
		if successCount > 0 {
			fmt.Fprintf(w, "Released locks on %s\n", util.Plural(successCount, "host"))
		}
		if notLockedCount > 0 {
			fmt.Fprintf(w, "%s had no lock\n", util.Plural(notLockedCount, "host"))
		}
		if failCount > 0 {
			fmt.Fprintf(w, "%s failed\n", util.Plural(failCount, "host"))
		}
	}

	if failCount > 0 {
		return errors.New(errors.ErrLock,
			"Some hosts failed to unlock",
			"Check the SSH connection and try again.")
	}
	return nil
}

func unlockHost(ctx context.Context, w io.Writer, runner remote.Runner, host, name string, opts lock.Options) unlockResult {
	held, holder, err := lock.Holder(ctx, runner, host, name, opts)
	if err != nil {
		fmt.Fprintf(w, "%s %s: %s\n", ui.SymbolFail, host, errors.Summary(err))
		return unlockResultFailed
	}
	if !held {
		fmt.Fprintf(w, "%s %s: no lock held\n", ui.SymbolPending, host)
		return unlockResultNotLocked
	}

	if err := lock.ForceRelease(ctx, runner, host, name, opts); err != nil {
		fmt.Fprintf(w, "%s %s: %s\n", ui.SymbolFail, host, errors.Summary(err))
		return unlockResultFailed
	}

	if holder != nil {
		fmt.Fprintf(w, "%s %s: lock released (was held by %s)\n", ui.SymbolSuccess, host, holder)
	} else {
		fmt.Fprintf(w, "%s %s: lock released\n", ui.SymbolSuccess, host)
	}
	return unlockResultSuccess
}
