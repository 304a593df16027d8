package iperf

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// JSON drives iperf3 with -J and reads end.sum_received, falling back to
// end.sum_sent. It avoids any dependence on iperf3's console layout.
type JSON struct{ daemon }

// Name implements Tool.
func (JSON) Name() string { return "iperf3-json" }

// ClientCommand implements Tool.
func (JSON) ClientCommand(server string, port int, duration time.Duration) string {
	return clientArgs(server, port, duration) + " -J"
}

type jsonSum struct {
	BitsPerSecond *float64 `json:"bits_per_second"`
}

type jsonReport struct {
	End struct {
		SumReceived *jsonSum `json:"sum_received"`
		SumSent     *jsonSum `json:"sum_sent"`
	} `json:"end"`
	Error string `json:"error"`
}

// Parse implements Tool.
func (JSON) Parse(stdout string) (float64, error) {
	if strings.TrimSpace(stdout) == "" {
		return 0, parseError("empty output")
	}
	var report jsonReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		return 0, parseError(err.Error())
	}
	if report.Error != "" {
		return 0, parseError(report.Error)
	}
	for _, sum := range []*jsonSum{report.End.SumReceived, report.End.SumSent} {
		if sum != nil && sum.BitsPerSecond != nil {
			bps := *sum.BitsPerSecond
			if bps < 0 || math.IsInf(bps, 0) {
				return 0, parseError("bad rate " + strconv.FormatFloat(bps, 'g', -1, 64))
			}
			return bps / 1e9, nil
		}
	}
	return 0, parseError("no end.sum_received or end.sum_sent")
}

// ToolError returns the "error" field iperf3 -J writes into stdout when a
// test fails, or "" when there is none.
func (JSON) ToolError(stdout string) string {
	var report jsonReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		return ""
	}
	return strings.TrimSpace(report.Error)
}
