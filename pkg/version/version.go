// Package version holds build information, set with -ldflags -X.
package version

var (
	// Version is the release version.
	Version = "v0.0.0-dev"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
)
