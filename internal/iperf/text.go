package iperf

import (
	"bufio"
	"math"
	"strconv"
	"strings"
	"time"
)

// Text drives iperf3 with its default human-readable output and reads the
// summary lines at the end:
//
//	[  5]   0.00-2.00   sec  2.19 GBytes  9.41 Gbits/sec    0             sender
//	[  5]   0.00-2.04   sec  2.19 GBytes  9.22 Gbits/sec                  receiver
//
// The receiver figure wins when both are present since it is what actually
// arrived. With -P the [SUM] lines come last and so win over per-stream ones.
type Text struct{ daemon }

// Name implements Tool.
func (Text) Name() string { return "iperf3" }

// ClientCommand implements Tool.
func (Text) ClientCommand(server string, port int, duration time.Duration) string {
	return clientArgs(server, port, duration)
}

// Parse implements Tool.
func (Text) Parse(stdout string) (float64, error) {
	var sender, receiver *float64
	var lastErr error

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		role := fields[len(fields)-1]
		if role != "sender" && role != "receiver" {
			continue
		}
		gbps, err := rateField(fields)
		if err != nil {
			lastErr = err
			continue
		}
		if role == "receiver" {
			receiver = &gbps
		} else {
			sender = &gbps
		}
	}

	switch {
	case receiver != nil:
		return *receiver, nil
	case sender != nil:
		return *sender, nil
	case lastErr != nil:
		return 0, lastErr
	}
	return 0, parseError("no sender/receiver summary line")
}

// rateField finds the "<n> <prefix>bits/sec" pair in a summary line and
// converts it to Gbit/s.
func rateField(fields []string) (float64, error) {
	for i := 1; i < len(fields); i++ {
		unit := fields[i]
		if !strings.HasSuffix(unit, "bits/sec") {
			continue
		}
		value, err := strconv.ParseFloat(fields[i-1], 64)
		if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, parseError("bad rate " + strconv.Quote(fields[i-1]))
		}
		scale, ok := unitScale(strings.TrimSuffix(unit, "bits/sec"))
		if !ok {
			return 0, parseError("unknown unit " + strconv.Quote(unit))
		}
		return value * scale, nil
	}
	return 0, parseError("no bits/sec figure on summary line")
}

// unitScale maps an iperf3 rate prefix to its factor relative to Gbit/s.
// iperf3 uses decimal prefixes for rates.
func unitScale(prefix string) (float64, bool) {
	switch prefix {
	case "":
		return 1e-9, true
	case "K":
		return 1e-6, true
	case "M":
		return 1e-3, true
	case "G":
		return 1, true
	case "T":
		return 1e3, true
	}
	return 0, false
}
