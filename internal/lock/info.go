package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"time"
)

// LockInfo is the info.json record inside a held lock, so whoever finds the
// lock can tell who took it and when.
type LockInfo struct {
	User     string    `json:"user"`
	Hostname string    `json:"hostname"`
	PID      int       `json:"pid"`
	Started  time.Time `json:"started"`
	Command  string    `json:"command,omitempty"`
}

// NewLockInfo describes the current process, started now.
func NewLockInfo(command string) *LockInfo {
	info := &LockInfo{
		User:     "unknown",
		Hostname: "unknown",
		PID:      os.Getpid(),
		Started:  time.Now().UTC().Truncate(time.Second),
		Command:  command,
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		info.User = u.Username
	} else if env := os.Getenv("USER"); env != "" {
		info.User = env
	}
	if h, err := os.Hostname(); err == nil {
		info.Hostname = h
	}
	return info
}

// Age is how long the lock has been held. A record with no start time has
// age zero.
func (i *LockInfo) Age() time.Duration {
	if i.Started.IsZero() {
		return 0
	}
	return time.Since(i.Started)
}

// Stale reports whether the lock is older than after. A zero after, or a
// record with no start time, is never stale.
func (i *LockInfo) Stale(after time.Duration) bool {
	return after > 0 && !i.Started.IsZero() && i.Age() > after
}

// ParseLockInfo decodes an info.json record.
func ParseLockInfo(data []byte) (*LockInfo, error) {
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (i *LockInfo) String() string {
	return fmt.Sprintf("%s@%s (pid %d)", i.User, i.Hostname, i.PID)
}
