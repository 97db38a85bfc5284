package memkv

import "runtime/debug"

// Version is the release of memkv.
const Version = "0.1.0"

// GitCommit and BuildTime are set with -ldflags "-X". When empty, the
// VCS stamp recorded by the Go toolchain is reported instead.
var (
	GitCommit string
	BuildTime string
)

// VersionInfo returns the version, the Go toolchain and, when known, the
// commit and build time the binary was produced from.
func VersionInfo() map[string]string {
	info := map[string]string{"version": Version}

	commit, built := GitCommit, BuildTime
	if bi, ok := debug.ReadBuildInfo(); ok {
		info["go"] = bi.GoVersion
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && built == "":
				built = s.Value
			}
		}
	}

	if commit != "" {
		info["commit"] = commit
	}
	if built != "" {
		info["buildTime"] = built
	}
	return info
}
