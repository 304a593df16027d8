package cli

import (
	"fmt"
	"io"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/ui"
	"github.com/rileyhilliard/gpubench/internal/util"
	"github.com/rileyhilliard/gpubench/pkg/sshutil"
	"github.com/spf13/cobra"
)

var hostsSSHConfigFlag string

// hostsCmd lists ssh_config aliases
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List ssh_config hosts usable with netbw",
	Long: `List the concrete Host aliases from your SSH config. Any of these can
be passed to netbw or check, or listed under hosts in .gpubench.yaml.

Examples:
  gpubench hosts
  gpubench hosts --ssh-config ./cluster_ssh_config`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		var (
			entries []sshutil.SSHHostEntry
			err     error
		)
		if hostsSSHConfigFlag != "" {
			entries, err = sshutil.ParseSSHConfigFile(hostsSSHConfigFlag)
		} else {
			entries, err = sshutil.ParseSSHConfig()
		}
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't read SSH config",
				"Check the file is readable and valid ssh_config syntax")
		}

		return printHosts(cmd.OutOrStdout(), entries, machineMode)
	},
}

func init() {
	hostsCmd.Flags().StringVar(&hostsSSHConfigFlag, "ssh-config", "", "SSH config file to read (default ~/.ssh/config)")
	rootCmd.AddCommand(hostsCmd)
}

// hostJSON is one alias in hosts --json output.
type hostJSON struct {
	Alias    string `json:"alias"`
	Hostname string `json:"hostname,omitempty"`
	User     string `json:"user,omitempty"`
	Port     string `json:"port,omitempty"`
}

func printHosts(w io.Writer, entries []sshutil.SSHHostEntry, jsonMode bool) error {
	if jsonMode {
		out := make([]hostJSON, len(entries))
		for i, e := range entries {
			out[i] = hostJSON{Alias: e.Alias, Hostname: e.Hostname, User: e.User, Port: e.Port}
		}
		return WriteJSONSuccess(w, out)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No hosts found in SSH config")
		return nil
	}

	columns := []ui.TableColumn{
		{Title: "ALIAS", Width: 4},
		{Title: "HOSTNAME", Width: 8},
		{Title: "USER", Width: 4},
		{Title: "PORT", Width: 4},
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.Alias, e.Hostname, e.User, e.Port}
		for j, v := range rows[i] {
			if len(v) > columns[j].Width {
				columns[j].Width = len(v)
			}
		}
	}
	for j := range columns {
		columns[j].Width += 2
	}

	fmt.Fprintln(w, ui.RenderSimpleTable(columns, rows))
	fmt.Fprintln(w, util.Plural(len(entries), "host"))
	return nil
}
