// Package utils provides helper functions, including version retrieval.
package utils

import (
	"runtime/debug"
)

const (
	unknownVersion    = "unknown"
	develBuildVersion = "(devel)"
)

// Version can be set at link time with -ldflags "-X github.com/tyemirov/mktree/internal/utils.Version=v1.2.3".
var Version = EmptyString

// GetApplicationVersion returns the link-time version when present, then the
// module version recorded in the build info.
func GetApplicationVersion() string {
	if Version != EmptyString {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != EmptyString && buildInfo.Main.Version != develBuildVersion {
		return buildInfo.Main.Version
	}
	return unknownVersion
}
