package common

import (
	"fmt"
	"runtime/debug"
)

// Version information (set via -ldflags during build)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// GetVersion returns the current version string, falling back to the module
// version recorded by the Go toolchain for `go install`ed binaries.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// GetFullVersion returns version with commit info
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit: %s)", GetVersion(), GitCommit)
}
