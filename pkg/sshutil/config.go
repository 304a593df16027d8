package sshutil

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry is one host as ssh would reach it: a concrete Host block read
// from an SSH config, or the outcome of Resolve.
type SSHHostEntry struct {
	Alias        string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// Description summarizes where the alias points, for pickers and listings.
func (h SSHHostEntry) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// Address is the host:port to dial. Hostname falls back to the alias and
// port to 22.
func (h SSHHostEntry) Address() string {
	host := h.Hostname
	if host == "" {
		host = h.Alias
	}
	port := h.Port
	if port == "" {
		port = "22"
	}
	return net.JoinHostPort(host, port)
}

// DefaultConfigPath is ~/.ssh/config.
func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// ParseSSHConfig lists the concrete host aliases in ~/.ssh/config.
func ParseSSHConfig() ([]SSHHostEntry, error) {
	return ParseSSHConfigFile(DefaultConfigPath())
}

// ParseSSHConfigFile lists the concrete host aliases in the SSH config at
// configPath, sorted. Wildcard patterns are skipped. A missing file is not
// an error.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	cfg, _, err := decodeConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var hosts []SSHHostEntry
	seen := make(map[string]bool)
	for _, block := range cfg.Hosts {
		for _, pattern := range block.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := SSHHostEntry{Alias: alias}
			overlay(cfg, alias, &entry, false)
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Alias < hosts[j].Alias })
	return hosts, nil
}

// overlay copies alias's HostName, User, Port, and IdentityFile from cfg onto
// e, leaving fields alone where cfg has nothing. With keepUserPort an already
// set User or Port is not replaced. Reports whether cfg knew the alias.
func overlay(cfg *ssh_config.Config, alias string, e *SSHHostEntry, keepUserPort bool) bool {
	found := false
	set := func(key string, dst *string, keep bool) {
		v, _ := cfg.Get(alias, key)
		if v == "" {
			return
		}
		found = true
		if keep && *dst != "" {
			return
		}
		*dst = v
	}

	set("HostName", &e.Hostname, false)
	set("User", &e.User, keepUserPort)
	set("Port", &e.Port, keepUserPort)
	set("IdentityFile", &e.IdentityFile, false)
	e.IdentityFile = expandPath(e.IdentityFile)
	return found
}

// decodeConfig parses the SSH config at path. ssh_config can't parse Match
// blocks, so the file is cut at the first Match directive and matchLine is
// that directive's 1-indexed line (0 if there is none).
func decodeConfig(path string) (cfg *ssh_config.Config, matchLine int, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			content = []byte(strings.Join(lines[:i], "\n"))
			matchLine = i + 1
			break
		}
	}

	cfg, err = ssh_config.Decode(bytes.NewReader(content))
	return cfg, matchLine, err
}
