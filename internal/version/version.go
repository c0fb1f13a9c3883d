// Package version holds the build identity, set at link time with
// -ldflags "-X github.com/fiji/fiji-sub027/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the release version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// Info is the build identity in serialisable form.
type Info struct {
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha"`
	BuildTime string `json:"build_time"`
}

// Get returns the current build identity.
func Get() Info {
	return Info{Version: Version, GitSHA: GitSHA, BuildTime: BuildTime}
}

// String formats the identity for -version output.
func String() string {
	return fmt.Sprintf("trackgraph %s (%s, built %s)", Version, GitSHA, BuildTime)
}
