package sshutil

import (
	"os"
	"strings"
	"sync"

	"github.com/rileyhilliard/gpubench/internal/logger"
)

var matchWarningOnce sync.Once

// Resolve works out where host points. The host may be an ssh_config alias,
// a hostname or IP, user@host, or host:port. An explicit user or port wins
// over the SSH config at configPath (empty means ~/.ssh/config). A missing
// or unreadable config just leaves the parsed values as they are.
func Resolve(host, configPath string) SSHHostEntry {
	entry := SSHHostEntry{}

	if at := strings.Index(host, "@"); at != -1 {
		entry.User = host[:at]
		host = host[at+1:]
	}
	if colon := strings.LastIndex(host, ":"); colon != -1 && isPort(host[colon+1:]) {
		entry.Port = host[colon+1:]
		host = host[:colon]
	}
	entry.Alias = host
	entry.Hostname = host

	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if cfg, matchLine, err := decodeConfig(configPath); err == nil {
		found := overlay(cfg, host, &entry, true)
		if matchLine > 0 && !found {
			matchWarningOnce.Do(func() {
				logger.Default().Warn("%s isn't in %s; the Match block at line %d hides any entries after it",
					host, configPath, matchLine)
			})
		}
	}

	if entry.User == "" {
		entry.User = currentUser()
	}
	if entry.Port == "" {
		entry.Port = "22"
	}
	return entry
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}
