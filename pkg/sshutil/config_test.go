package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseSSHConfigFile(t *testing.T) {
	path := writeConfig(t, `
Host gpu-02
    HostName 10.0.0.12
    User ubuntu
    Port 2222

Host gpu-01
    HostName 10.0.0.11
    IdentityFile ~/.ssh/id_cluster

Host *
    ServerAliveInterval 60

Host node-?
    User ops
`)

	hosts, err := ParseSSHConfigFile(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	assert.Equal(t, "gpu-01", hosts[0].Alias)
	assert.Equal(t, "10.0.0.11", hosts[0].Hostname)
	assert.Contains(t, hosts[0].IdentityFile, "id_cluster")

	assert.Equal(t, "gpu-02", hosts[1].Alias)
	assert.Equal(t, "ubuntu", hosts[1].User)
	assert.Equal(t, "2222", hosts[1].Port)
}

func TestParseSSHConfigFile_NotExists(t *testing.T) {
	hosts, err := ParseSSHConfigFile(filepath.Join(t.TempDir(), "missing"))
	assert.NoError(t, err)
	assert.Nil(t, hosts)
}

func TestParseSSHConfigFile_StopsAtMatch(t *testing.T) {
	path := writeConfig(t, `
Host before
    HostName 1.2.3.4

Match host foo
    User bar

Host after
    HostName 5.6.7.8
`)

	hosts, err := ParseSSHConfigFile(path)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "before", hosts[0].Alias)
}

func TestParseSSHConfigFile_DuplicateAndMultiplePatterns(t *testing.T) {
	path := writeConfig(t, `
Host a b
    User shared

Host a
    User other
`)

	hosts, err := ParseSSHConfigFile(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "a", hosts[0].Alias)
	assert.Equal(t, "b", hosts[1].Alias)
	assert.Equal(t, "shared", hosts[0].User)
}

func TestSSHHostEntry_Description(t *testing.T) {
	tests := []struct {
		name  string
		entry SSHHostEntry
		want  string
	}{
		{"alias only", SSHHostEntry{Alias: "gpu"}, "gpu"},
		{"hostname same as alias", SSHHostEntry{Alias: "gpu", Hostname: "gpu"}, "gpu"},
		{"full", SSHHostEntry{Alias: "gpu", Hostname: "10.0.0.1", User: "root", Port: "2222"}, "10.0.0.1, user: root, port: 2222"},
		{"default port hidden", SSHHostEntry{Alias: "gpu", Port: "22", User: "root"}, "user: root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Description())
		})
	}
}

func TestSSHHostEntry_Address(t *testing.T) {
	assert.Equal(t, "10.0.0.1:2222", SSHHostEntry{Alias: "gpu", Hostname: "10.0.0.1", Port: "2222"}.Address())
	assert.Equal(t, "gpu:22", SSHHostEntry{Alias: "gpu"}.Address())
	assert.Equal(t, "[fe80::1]:22", SSHHostEntry{Hostname: "fe80::1"}.Address())
}
