package kurir

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X github.com/ambiyansyah-risyal/kurir.GitCommit=...".
// Empty values fall back to the VCS stamp embedded by the go command.
var (
	Version   = "1.4.0"
	GitCommit = ""
	BuildDate = ""
)

// BuildInfo identifies the running build of the library.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

type vcsInfo struct {
	revision string
	time     string
	modified bool
}

var vcsStamp = sync.OnceValue(func() vcsInfo {
	var s vcsInfo
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return s
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			s.revision = setting.Value
		case "vcs.time":
			s.time = setting.Value
		case "vcs.modified":
			s.modified = setting.Value == "true"
		}
	}
	return s
})

// GetVersionInfo reports the build metadata. Commit and BuildDate are
// "unknown" when neither ldflags nor the VCS stamp provide them.
func GetVersionInfo() BuildInfo {
	stamp := vcsStamp()
	return BuildInfo{
		Version:   Version,
		Commit:    firstNonEmpty(GitCommit, shortRevision(stamp.revision), "unknown"),
		BuildDate: firstNonEmpty(BuildDate, stamp.time, "unknown"),
		GoVersion: runtime.Version(),
		Modified:  GitCommit == "" && stamp.modified,
	}
}

// GetVersion returns a one-line description of the build.
func GetVersion() string {
	info := GetVersionInfo()
	commit := info.Commit
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("kurir v%s (%s, %s, %s)", info.Version, commit, info.BuildDate, info.GoVersion)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// userAgent is sent when the caller did not set a User-Agent header.
func userAgent() string {
	return "kurir/" + Version
}
