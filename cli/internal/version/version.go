// Package version holds the CLI version string. Default is "dev"; release
// builds set it via: go build -ldflags "-X reviewloop/cli/internal/version.Version=v1.0.0"
package version

// Version is the reviewloop CLI version. Set at build time for releases.
var Version = "dev"

// Commit is the short git commit hash. Set at build time via ldflags.
var Commit = ""

// String returns the version string for display (e.g. --version).
// For dev builds with Commit set, returns "dev (abc1234)".
func String() string {
	if Version != "dev" || Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
