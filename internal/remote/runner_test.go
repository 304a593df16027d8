package remote

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResult_OKAndDetail(t *testing.T) {
	tests := []struct {
		name   string
		res    Result
		ok     bool
		detail string
	}{
		{
			name: "clean exit",
			res:  Result{ExitCode: 0},
			ok:   true,
		},
		{
			name:   "non-zero exit uses stderr",
			res:    Result{ExitCode: 1, Stderr: "iperf3: error - unable to connect to server\nmore\n"},
			detail: "iperf3: error - unable to connect to server",
		},
		{
			name:   "non-zero exit without stderr",
			res:    Result{ExitCode: 7},
			detail: "exit status 7",
		},
		{
			name:   "transport error",
			res:    Result{ExitCode: StatusError, Err: errors.New("connection refused")},
			detail: "connection refused",
		},
		{
			name:   "timeout",
			res:    Result{ExitCode: StatusTimeout, TimedOut: true, Duration: 5 * time.Second},
			detail: "timed out after 5s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.res.OK())
			assert.Equal(t, tt.detail, tt.res.Detail())
		})
	}
}
