package version

import "fmt"

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/pageboot/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the version line printed by the CLI and the user agent sent
// to origins.
func String() string {
	return fmt.Sprintf("pageboot %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}

// UserAgent is the User-Agent header sent on origin requests.
func UserAgent() string {
	return "pageboot/" + Version
}
