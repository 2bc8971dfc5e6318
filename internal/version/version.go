// Package version reports build information stamped in at link time:
//
//	go build -ldflags "-X scenegen/internal/version.Version=1.2.0 \
//	  -X scenegen/internal/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/scenegen
package version

import "fmt"

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the build information for -version output and run
// manifests.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
