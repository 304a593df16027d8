package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands $VAR and ${VAR} references, then a leading ~ or ~/,
// so a path like ~/bw/$SLURM_JOB_ID.json lands under the home directory
// with the job id filled in. ~user is left alone.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	path = os.ExpandEnv(path)

	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
