package config

import "fmt"

// Build metadata, overridden through SetBuildFlags from -ldflags values
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func SetBuildFlags(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
}

// VersionString is the one-line description printed by `nftwallet version`.
func VersionString() string {
	if Commit == "unknown" {
		return fmt.Sprintf("nftwallet version %s", Version)
	}
	return fmt.Sprintf("nftwallet version %s (commit %s, built %s)", Version, Commit, Date)
}
