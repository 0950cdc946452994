// Package version provides build-time version information.
//
// Release builds set the variables via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/mse-history/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/mse-history/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/mse-history/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/mse-sync
//
// Plain `go build` and `go install` leave them unset; the commit and time are
// then taken from the VCS stamp in the binary's build info.
package version

import "runtime/debug"

// Build-time variables (set via ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	fillFromBuildInfo(info)
}

// fillFromBuildInfo fills unset variables from module and VCS metadata.
func fillFromBuildInfo(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == "unknown" && s.Value != "" {
				Commit = s.Value[:min(7, len(s.Value))]
			}
		case "vcs.time":
			if BuildTime == "unknown" && s.Value != "" {
				BuildTime = s.Value
			}
		}
	}
}

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime
}

// UserAgent identifies the synchronizer to the exchange site.
func UserAgent() string {
	return "mse-sync/" + Version + " (+" + Commit + ")"
}
