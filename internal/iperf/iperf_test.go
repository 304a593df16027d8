package iperf

import (
	"strings"
	"testing"
	"time"

	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textOutput = `Connecting to host gpu-02, port 5201
[  5] local 10.0.0.1 port 50412 connected to 10.0.0.2 port 5201
[ ID] Interval           Transfer     Bitrate         Retr  Cwnd
[  5]   0.00-1.00   sec  1.09 GBytes  9.38 Gbits/sec    0   1.52 MBytes
[  5]   1.00-2.00   sec  1.10 GBytes  9.42 Gbits/sec    0   1.52 MBytes
- - - - - - - - - - - - - - - - - - - - - - - - -
[ ID] Interval           Transfer     Bitrate         Retr
[  5]   0.00-2.00   sec  2.19 GBytes  9.41 Gbits/sec    0             sender
[  5]   0.00-2.04   sec  2.19 GBytes  9.22 Gbits/sec                  receiver

iperf Done.
`

func TestText_Parse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
	}{
		{
			name:   "receiver preferred over sender",
			output: textOutput,
			want:   9.22,
		},
		{
			name:   "sender only",
			output: "[  5]   0.00-2.00   sec  2.19 GBytes  9.41 Gbits/sec    0             sender\n",
			want:   9.41,
		},
		{
			name:   "megabits normalized",
			output: "[  5]   0.00-2.00   sec   225 MBytes   943 Mbits/sec                  receiver\n",
			want:   0.943,
		},
		{
			name:   "kilobits normalized",
			output: "[  5]   0.00-2.00   sec  125 KBytes   500 Kbits/sec                  receiver\n",
			want:   0.0005,
		},
		{
			name:   "terabits normalized",
			output: "[  5]   0.00-2.00   sec   250 GBytes  1.02 Tbits/sec                  receiver\n",
			want:   1020,
		},
		{
			name:   "bare bits",
			output: "[  5]   0.00-2.00   sec  0.00 Bytes  0.00 bits/sec                  receiver\n",
			want:   0,
		},
		{
			name: "parallel streams use SUM",
			output: "[  5]   0.00-2.00   sec  1.10 GBytes  4.70 Gbits/sec                  receiver\n" +
				"[  7]   0.00-2.00   sec  1.10 GBytes  4.71 Gbits/sec                  receiver\n" +
				"[SUM]   0.00-2.00   sec  2.20 GBytes  9.41 Gbits/sec                  receiver\n",
			want: 9.41,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text{}.Parse(tt.output)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestText_ParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		output string
		detail string
	}{
		{
			name:   "empty",
			output: "",
			detail: "no sender/receiver summary line",
		},
		{
			name:   "connection refused",
			output: "iperf3: error - unable to connect to server - server may have stopped running or use a different port, firewall issue, etc.: Connection refused\n",
			detail: "no sender/receiver summary line",
		},
		{
			name:   "garbled rate",
			output: "[  5]   0.00-2.00   sec  2.19 GBytes  fast Gbits/sec                  receiver\n",
			detail: `bad rate "fast"`,
		},
		{
			name:   "unknown unit",
			output: "[  5]   0.00-2.00   sec  2.19 GBytes  9.4 Pbits/sec                  receiver\n",
			detail: `unknown unit "Pbits/sec"`,
		},
		{
			name:   "negative rate",
			output: "[  5]   0.00-2.00   sec  2.19 GBytes  -9.4 Gbits/sec                  receiver\n",
			detail: `bad rate "-9.4"`,
		},
		{
			name:   "NaN rate",
			output: "[  5]   0.00-2.00   sec  2.19 GBytes  NaN Gbits/sec                  receiver\n",
			detail: `bad rate "NaN"`,
		},
		{
			name:   "infinite rate",
			output: "[  5]   0.00-2.00   sec  2.19 GBytes  +Inf Gbits/sec                  receiver\n",
			detail: `bad rate "+Inf"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Text{}.Parse(tt.output)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrParse))
			assert.Equal(t, ParseFailure+": "+tt.detail, errors.Summary(err))
		})
	}
}

func TestJSON_Parse(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    float64
		wantErr string
	}{
		{
			name:   "sum_received",
			output: `{"end":{"sum_sent":{"bits_per_second":9410000000},"sum_received":{"bits_per_second":9220000000}}}`,
			want:   9.22,
		},
		{
			name:   "falls back to sum_sent",
			output: `{"end":{"sum_sent":{"bits_per_second":25000000000}}}`,
			want:   25,
		},
		{
			name:    "iperf error field",
			output:  `{"start":{},"end":{},"error":"unable to connect to server: Connection refused"}`,
			wantErr: "unable to connect to server: Connection refused",
		},
		{
			name:    "negative rate",
			output:  `{"end":{"sum_received":{"bits_per_second":-1}}}`,
			wantErr: "bad rate -1",
		},
		{
			name:    "no sums",
			output:  `{"end":{}}`,
			wantErr: "no end.sum_received or end.sum_sent",
		},
		{
			name:    "not json",
			output:  "iperf3: error - unable to connect",
			wantErr: "invalid character",
		},
		{
			name:    "empty",
			output:  "  \n",
			wantErr: "empty output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSON{}.Parse(tt.output)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrParse))
				assert.Contains(t, errors.Summary(err), ParseFailure)
				assert.Contains(t, errors.Summary(err), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCommands(t *testing.T) {
	text := Text{}
	assert.Equal(t, "iperf3 -s -p 5201 -D", text.ServerCommand(5201))
	assert.Equal(t, "pkill -f '[i]perf3 -s -p 5201( |$)'", text.StopCommand(5201))
	assert.Equal(t, "pgrep -f '[i]perf3 -s -p 5201( |$)'", text.ReadyCommand(5201))
	assert.Equal(t, "iperf3 -c gpu-02 -p 5201 -t 2", text.ClientCommand("gpu-02", 5201, 2*time.Second))
	assert.Equal(t, "iperf3 -c gpu-02 -p 5201 -t 1", text.ClientCommand("gpu-02", 5201, 100*time.Millisecond))
	assert.Equal(t, "iperf3 -c 'gpu 02;id' -p 5201 -t 2", text.ClientCommand("gpu 02;id", 5201, 2*time.Second))

	js := JSON{}
	assert.Equal(t, "iperf3 -c gpu-02 -p 6000 -t 3 -J", js.ClientCommand("gpu-02", 6000, 3*time.Second))
	assert.Equal(t, text.ServerCommand(6000), js.ServerCommand(6000))

	// The stop pattern has to match what the server command launched.
	assert.True(t, strings.HasPrefix(text.ServerCommand(5201), "iperf3 -s -p 5201"))
}

func TestByName(t *testing.T) {
	tool, err := ByName("iperf3")
	require.NoError(t, err)
	assert.Equal(t, "iperf3", tool.Name())

	tool, err = ByName("iperf3-json")
	require.NoError(t, err)
	assert.Equal(t, "iperf3-json", tool.Name())

	_, err = ByName("netperf")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
	assert.Equal(t, []string{"iperf3", "iperf3-json"}, Names())
}

func TestJSON_ToolError(t *testing.T) {
	assert.Equal(t, "unable to connect to server: Connection refused",
		JSON{}.ToolError(`{"start":{},"end":{},"error":"unable to connect to server: Connection refused"}`))
	assert.Empty(t, JSON{}.ToolError(`{"end":{"sum_sent":{"bits_per_second":1}}}`))
	assert.Empty(t, JSON{}.ToolError("iperf3: error - unable to connect"))
	assert.Empty(t, JSON{}.ToolError(""))

	var _ ErrorReporter = JSON{}
}
