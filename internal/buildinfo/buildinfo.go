// Package buildinfo reports which build of the console is running.
package buildinfo

import "runtime/debug"

// Overridden at link time:
//   -ldflags "-X deliverydesk/internal/buildinfo.Version=v1.2.0 -X deliverydesk/internal/buildinfo.Commit=abc123"
var (
    Version = "dev"
    Commit  = ""
    BuiltAt = ""
)

type Build struct {
    Version   string `json:"version"`
    Commit    string `json:"commit,omitempty"`
    BuiltAt   string `json:"builtAt,omitempty"`
    GoVersion string `json:"goVersion,omitempty"`
    Modified  bool   `json:"modified,omitempty"`
}

// Current falls back to the VCS stamp the go tool embeds when the link-time
// values were not set.
func Current() Build {
    b := Build{Version: Version, Commit: Commit, BuiltAt: BuiltAt}
    info, ok := debug.ReadBuildInfo()
    if !ok { return b }
    b.GoVersion = info.GoVersion
    for _, s := range info.Settings {
        switch s.Key {
        case "vcs.revision":
            if b.Commit == "" { b.Commit = s.Value }
        case "vcs.time":
            if b.BuiltAt == "" { b.BuiltAt = s.Value }
        case "vcs.modified":
            b.Modified = s.Value == "true"
        }
    }
    return b
}
