package kurir

import (
	"runtime"
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	if info.Version != Version {
		t.Errorf("Expected version %q, got %q", Version, info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("Expected go version %q, got %q", runtime.Version(), info.GoVersion)
	}
	if info.Commit == "" || info.BuildDate == "" {
		t.Errorf("Expected commit and build date to be filled, got %+v", info)
	}
}

func TestGetVersionInfoLinkerValues(t *testing.T) {
	commit, date := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = commit, date })
	GitCommit, BuildDate = "abc1234", "2026-01-02T03:04:05Z"

	info := GetVersionInfo()
	if info.Commit != "abc1234" || info.BuildDate != "2026-01-02T03:04:05Z" {
		t.Errorf("Expected linker values to win, got %+v", info)
	}
	if info.Modified {
		t.Error("Expected Modified to be false when the commit comes from the linker")
	}
	if v := GetVersion(); !strings.HasPrefix(v, "kurir v"+Version+" (abc1234, ") {
		t.Errorf("Unexpected version string %q", v)
	}
}

func TestShortRevision(t *testing.T) {
	if got := shortRevision("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("Expected 12 characters, got %q", got)
	}
	if got := shortRevision("abc"); got != "abc" {
		t.Errorf("Expected abc, got %q", got)
	}
}
