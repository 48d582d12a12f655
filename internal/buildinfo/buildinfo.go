package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/loci/internal/buildinfo.Version=..."
var (
	Version    = "0.1.0-dev"
	CommitHash string
	BuildTime  string
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// String renders the version with the commit when one was stamped
func String() string {
	if CommitHash == "" {
		return Version
	}
	return Version + " (" + CommitHash + ")"
}
