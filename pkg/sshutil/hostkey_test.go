package sshutil

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func newTestKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestHostKeyCallback(t *testing.T) {
	known := newTestKey(t)
	other := newTestKey(t)
	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 22}

	t.Run("not strict accepts anything", func(t *testing.T) {
		cb, err := hostKeyCallback(false, "")
		require.NoError(t, err)
		assert.NoError(t, cb("gpu-07:22", addr, other))
	})

	t.Run("creates known_hosts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ssh", "known_hosts")
		_, err := hostKeyCallback(true, path)
		require.NoError(t, err)
		assert.FileExists(t, path)
	})

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{"gpu-07", "10.0.0.7"}, known)
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0600))
	cb, err := hostKeyCallback(true, path)
	require.NoError(t, err)

	t.Run("known key", func(t *testing.T) {
		assert.NoError(t, cb("gpu-07:22", addr, known))
	})

	t.Run("mismatch", func(t *testing.T) {
		err := cb("gpu-07:22", addr, other)
		var mismatch *HostKeyMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, ssh.KeyAlgoED25519, mismatch.ReceivedType)
		assert.Contains(t, mismatch.Error(), "gpu-07")
		assert.Contains(t, mismatch.Suggestion(), "ssh-keygen -R gpu-07")
		assert.Contains(t, mismatch.Suggestion(), path)
	})
}
