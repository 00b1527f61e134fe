// Package version carries build metadata stamped via -ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return "earworm " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent identifies earworm to remote recognition services.
func UserAgent() string {
	return "earworm/" + Version
}
