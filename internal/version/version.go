// Package version reports build metadata for watch-cmd. Values set via
// -ldflags win; otherwise the module and VCS data embedded by the Go
// toolchain are used.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time values injected via -ldflags.
var (
	version   = ""
	gitCommit = ""
)

// Info holds the build metadata printed by --version.
type Info struct {
	Version  string
	Commit   string
	Modified bool
	Platform string
}

// GetInfo returns the current build information.
func GetInfo() Info {
	bi, _ := debug.ReadBuildInfo()
	return fromBuildInfo(bi, version, gitCommit)
}

func fromBuildInfo(bi *debug.BuildInfo, ldVersion, ldCommit string) Info {
	info := Info{
		Version:  "dev",
		Commit:   "none",
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}

	if bi != nil {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = v
		}

		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if ldVersion != "" {
		info.Version = ldVersion
	}

	if ldCommit != "" {
		info.Commit = ldCommit
	}

	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}

	return info
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "-dirty"
	}

	return fmt.Sprintf("watch-cmd %s (commit: %s, %s)", i.Version, commit, i.Platform)
}
