// Package version exposes deployctl's build metadata.
package version

// Set at build time via -ldflags.
var (
	// Version is the release version (e.g. v1.0.0).
	Version = "dev"

	// BuildTime is when the binary was built.
	BuildTime = "unknown"

	// GitCommit is the source commit the binary was built from.
	GitCommit = "unknown"
)

// Info returns the build metadata for the version endpoint and command.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}
}
