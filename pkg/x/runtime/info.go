// Package runtime exposes build provenance for the /version endpoint.
package runtime

import (
	"runtime"
	"runtime/debug"

	"github.com/omalloc/relay/internal/constants"
)

type RuntimeInfo struct {
	AppName     string `json:"app.name"`
	GoVersion   string `json:"go.version"`
	GoArch      string `json:"go.arch"`
	Vcs         string `json:"vcs"`
	VcsRevision string `json:"vcs.revision"`
	VcsTime     string `json:"vcs.time"`
	Dirty       bool   `json:"dirty"`
}

// BuildInfo is filled once at startup from the binary's embedded build
// metadata. When the binary was built with -buildvcs=false the VCS fields
// stay empty and Dirty stays true.
var BuildInfo RuntimeInfo

func init() {
	BuildInfo.AppName = constants.AppName
	BuildInfo.Dirty = true
	BuildInfo.GoVersion = runtime.Version()
	BuildInfo.GoArch = runtime.GOARCH

	// -buildvcs=true / auto
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, kv := range info.Settings {
			switch kv.Key {
			case "vcs":
				BuildInfo.Vcs = kv.Value
			case "vcs.revision":
				if len(kv.Value) >= 8 {
					BuildInfo.VcsRevision = kv.Value[:8]
				}
			case "vcs.time":
				BuildInfo.VcsTime = kv.Value
			case "vcs.modified":
				BuildInfo.Dirty = kv.Value == "true"
			}
		}
	}
}
