package cli

import (
	"fmt"

	"github.com/rileyhilliard/gpubench/internal/config"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/logger"
	"github.com/rileyhilliard/gpubench/internal/remote"
	"github.com/rileyhilliard/gpubench/pkg/sshutil"
)

// newRunner builds the remote runner for cfg.Transport. The returned close
// function releases pooled connections and is always safe to call.
func newRunner(cfg *config.Config, log logger.Logger) (remote.Runner, func() error, error) {
	switch cfg.Transport {
	case config.TransportSSH:
		pool := remote.NewPool(remote.PoolOptions{
			ConnectTimeout:  cfg.SSH.ConnectTimeout,
			SessionsPerHost: cfg.SessionsPerHost,
			DialRate:        cfg.DialRate,
			Dial:            remote.SSHDialer(sshutil.DialOptions{StrictHostKey: cfg.SSH.StrictHostKey}),
			Logger:          log,
		})
		runner := remote.NewSSHRunner(pool, log)
		return runner, func() error {
			defer sshutil.CloseAgent()
			return runner.Close()
		}, nil

	case config.TransportExec:
		runner := remote.NewExecRunner(cfg.SSH.ConnectTimeout, log)
		if !cfg.SSH.StrictHostKey {
			runner.ExtraArgs = append(runner.ExtraArgs,
				"-o", "StrictHostKeyChecking=no",
				"-o", "UserKnownHostsFile=/dev/null")
		}
		return runner, func() error { return nil }, nil
	}

	return nil, nil, errors.New(errors.ErrConfig,
		fmt.Sprintf("transport '%s' isn't valid", cfg.Transport),
		"Use 'ssh' or 'exec'")
}
