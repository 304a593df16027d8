// Package iperf adapts the iperf3 command line to the mesh scheduler: the
// commands that start, probe, stop, and drive a server, and the parsing of
// whatever the client prints into a single Gbps figure.
package iperf

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/util"
)

// Tool is one way of driving a bandwidth server/client pair. Commands are
// shell strings run on the remote host.
type Tool interface {
	Name() string
	// ServerCommand starts a server on port that outlives the command.
	ServerCommand(port int) string
	// ReadyCommand exits 0 once the server on port is up.
	ReadyCommand(port int) string
	// StopCommand kills the server on port. It must be safe to run when
	// no server is running.
	StopCommand(port int) string
	// ClientCommand measures throughput to server:port for duration.
	ClientCommand(server string, port int, duration time.Duration) string
	// Parse extracts throughput in Gbit/s from the client's stdout.
	Parse(stdout string) (float64, error)
}

const binary = "iperf3"

// ParseFailure is the message every parse error starts with.
const ParseFailure = "failed to parse output"

// ErrorReporter is implemented by tools that write their own failure
// message to stdout rather than stderr.
type ErrorReporter interface {
	ToolError(stdout string) string
}

// daemon holds the server side, which is the same whatever the client
// output format is.
type daemon struct{}

// ServerCommand forks iperf3 into the background with -D so the SSH command
// returns as soon as the socket is bound. -D goes last so the StopCommand
// pattern still matches.
func (daemon) ServerCommand(port int) string {
	return fmt.Sprintf("%s -s -p %d -D", binary, port)
}

// The [i] stops pkill/pgrep matching the shell that runs them.
func (daemon) serverPattern(port int) string {
	return fmt.Sprintf("'[i]perf3 -s -p %d( |$)'", port)
}

func (d daemon) ReadyCommand(port int) string {
	return "pgrep -f " + d.serverPattern(port)
}

func (d daemon) StopCommand(port int) string {
	return "pkill -f " + d.serverPattern(port)
}

func clientArgs(server string, port int, duration time.Duration) string {
	secs := int(duration.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("%s -c %s -p %d -t %d", binary, util.QuoteArg(server), port, secs)
}

func parseError(detail string) error {
	return errors.New(errors.ErrParse, ParseFailure+": "+detail,
		"Run the client command by hand on the host to see what iperf3 printed.")
}

var registry = map[string]func() Tool{
	"iperf3":      func() Tool { return Text{} },
	"iperf3-json": func() Tool { return JSON{} },
}

// Names lists the registered tool names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName returns the tool registered under name.
func ByName(name string) (Tool, error) {
	if ctor, ok := registry[name]; ok {
		return ctor(), nil
	}
	return nil, errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown tool %q", name),
		"Pick one of: "+strings.Join(Names(), ", "))
}
