// Package cli implements the gpubench command-line interface.
//
// Each Cobra command parses flags, resolves config and hosts, and then hands
// a fully built run value to a function that does the work. Tests drive those
// functions directly with a fake remote.Runner.
//
// # Command Structure
//
//	gpubench netbw [hosts...]  - Measure the full client/server bandwidth matrix
//	gpubench check [hosts...]  - Verify SSH and iperf3 on each host
//	gpubench hosts             - List ssh_config aliases usable as hosts
//	gpubench unlock [hosts...] - Release a port lock left by a killed run
//	gpubench version           - Print build information
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color, --json) live on the root
// command. Config values come from .gpubench.yaml (see internal/config);
// flags override them only when explicitly set, and positional hosts
// replace the configured host list.
//
// # Exit Codes
//
//	0  run completed, even if some pairs failed
//	1  bad config, no usable hosts, a held port lock, or the results file
//	   could not be written
//	2  --fail-on-degraded was set and a link was low or failed, or check found
//	   a host that is not ready
//	130 interrupted; partial results are still written
package cli
