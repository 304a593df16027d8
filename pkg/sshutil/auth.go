package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// EncryptedKeyError means a key file needs a passphrase we can't prompt for.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// authSet is the auth methods for one dial plus any keys skipped for being
// encrypted, so errors can tell the user which ones to ssh-add.
type authSet struct {
	methods   []ssh.AuthMethod
	encrypted []string
}

// collectAuth gathers the agent first, then identityFile, then the default
// key files. A key that fails to load is skipped.
func collectAuth(identityFile string) authSet {
	var set authSet
	if a := agentAuth(); a != nil {
		set.methods = append(set.methods, a)
	}

	keys := defaultKeyFiles()
	if identityFile != "" {
		keys = append([]string{identityFile}, keys...)
	}
	seen := make(map[string]bool, len(keys))
	for _, path := range keys {
		if seen[path] {
			continue
		}
		seen[path] = true

		method, err := loadKey(path)
		var encErr *EncryptedKeyError
		switch {
		case err == nil:
			set.methods = append(set.methods, method)
		case stderrors.As(err, &encErr):
			set.encrypted = append(set.encrypted, path)
		}
	}
	return set
}

var (
	agentMu     sync.Mutex
	agentConn   net.Conn
	agentClient agent.ExtendedAgent
)

// agentAuth returns agent auth when SSH_AUTH_SOCK has keys loaded. One agent
// connection is shared by every dial until CloseAgent.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentMu.Lock()
	if agentClient == nil {
		if conn, err := net.Dial("unix", socket); err == nil {
			agentConn = conn
			agentClient = agent.NewClient(conn)
		}
	}
	client := agentClient
	agentMu.Unlock()

	if client == nil {
		return nil
	}
	// An empty agent ahead of the key files would use up an auth attempt.
	if signers, err := client.Signers(); err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(client.Signers)
}

// CloseAgent closes the shared agent connection. The next dial reopens it.
func CloseAgent() {
	agentMu.Lock()
	defer agentMu.Unlock()
	if agentConn != nil {
		agentConn.Close()
	}
	agentConn = nil
	agentClient = nil
}

func loadKey(path string) (ssh.AuthMethod, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || isEncryptedPEM(pem) {
			return nil, &EncryptedKeyError{Path: path}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED"))
}

func defaultKeyFiles() []string {
	dir := filepath.Join(homeDir(), ".ssh")
	return []string{
		filepath.Join(dir, "id_ed25519"),
		filepath.Join(dir, "id_rsa"),
		filepath.Join(dir, "id_ecdsa"),
	}
}

func addKeysSuggestion(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Load the key(s) into your agent:\n")
	for _, key := range keys {
		fmt.Fprintf(&sb, "  ssh-add %s\n", key)
	}
	sb.WriteString("\nNot sure which key a node wants? Check with: ssh -v <host>")
	return sb.String()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
