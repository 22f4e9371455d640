// Package version carries build identification, set at link time via
// -ldflags "-X ...".
package version

import "fmt"

var (
	// Version is the current bridge version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String returns a single-line build identifier for logs and status pages.
func String() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
