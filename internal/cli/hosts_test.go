package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rileyhilliard/gpubench/pkg/sshutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintHosts(t *testing.T) {
	entries := []sshutil.SSHHostEntry{
		{Alias: "gpu-01", Hostname: "10.0.0.11", User: "ubuntu", Port: "22"},
		{Alias: "gpu-02", Hostname: "10.0.0.12", User: "ubuntu", Port: "2222"},
	}

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printHosts(&buf, entries, false))

		out := buf.String()
		assert.Contains(t, out, "ALIAS")
		assert.Contains(t, out, "gpu-01")
		assert.Contains(t, out, "10.0.0.12")
		assert.Contains(t, out, "2222")
		assert.Contains(t, out, "2 hosts")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printHosts(&buf, entries, true))

		var env struct {
			Success bool       `json:"success"`
			Data    []hostJSON `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
		assert.True(t, env.Success)
		require.Len(t, env.Data, 2)
		assert.Equal(t, "gpu-02", env.Data[1].Alias)
		assert.Equal(t, "2222", env.Data[1].Port)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printHosts(&buf, nil, false))
		assert.Contains(t, buf.String(), "No hosts found")
	})
}
