// Package buildversion reports the version of a module as recorded in the
// running binary's build information.
package buildversion

import (
	"runtime/debug"
)

const unknownVersion = "unknown"

// GetVersion returns the version of modulePath that was compiled into the
// current binary. The main module of a development build reports "(devel)".
func GetVersion(modulePath string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknownVersion
	}

	return versionFromBuildInfo(info, modulePath)
}

func versionFromBuildInfo(info *debug.BuildInfo, modulePath string) string {
	if info.Main.Path == modulePath {
		if info.Main.Version == "" {
			return unknownVersion
		}
		return info.Main.Version
	}

	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}

	return unknownVersion
}
