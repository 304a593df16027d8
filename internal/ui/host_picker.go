package ui

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/pkg/sshutil"
)

// MinHosts is the smallest host set worth measuring.
const MinHosts = 2

// hostOptions turns ssh_config entries into picker options, labelled with
// the resolved hostname when there is one.
func hostOptions(entries []sshutil.SSHHostEntry) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(entries))
	for _, e := range entries {
		label := e.Alias
		if desc := e.Description(); desc != "" && desc != e.Alias {
			label = fmt.Sprintf("%s (%s)", e.Alias, desc)
		}
		options = append(options, huh.NewOption(label, e.Alias))
	}
	return options
}

func validateSelection(selected []string) error {
	if len(selected) < MinHosts {
		return fmt.Errorf("select at least %d hosts", MinHosts)
	}
	return nil
}

// PickHosts shows a multi-select of ssh_config hosts and returns the chosen
// aliases in config order.
func PickHosts(entries []sshutil.SSHHostEntry, input io.Reader, output io.Writer) ([]string, error) {
	if len(entries) < MinHosts {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Found %d host(s) in ~/.ssh/config, need at least %d", len(entries), MinHosts),
			"Pass hosts as arguments or set `hosts` in .gpubench.yaml.")
	}

	var selected []string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Hosts to measure").
				Description("Every selected host is measured against every other one.").
				Options(hostOptions(entries)...).
				Filterable(true).
				Validate(validateSelection).
				Value(&selected),
		),
	).WithInput(input).WithOutput(output)

	if err := form.Run(); err != nil {
		if stderrors.Is(err, huh.ErrUserAborted) {
			return nil, errors.New(errors.ErrConfig, "Host selection cancelled", "")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Host picker failed",
			"Pass hosts as arguments instead.")
	}

	// Keep ssh_config order rather than click order.
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	ordered := make([]string, 0, len(selected))
	for _, e := range entries {
		if chosen[e.Alias] {
			ordered = append(ordered, e.Alias)
		}
	}
	return ordered, nil
}
