package app

import "fmt"

// Build information populated via -ldflags at build time, e.g.
//
//	-ldflags "-X github.com/hyperifyio/piproxy/internal/app.BuildVersion=1.2.0"
var (
    BuildVersion = "0.0.0-dev"
    BuildCommit  = "unknown"
    BuildDate    = "unknown"
)

// VersionString formats the build information for -version and startup logs.
func VersionString() string {
    return fmt.Sprintf("piproxy %s (commit %s, built %s)", BuildVersion, BuildCommit, BuildDate)
}
