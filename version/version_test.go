package version

import (
	"runtime/debug"
	"testing"
)

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"dev", Info{Version: "dev"}, "dev"},
		{"release", Info{Version: "1.4.0", Commit: "abc1234", GoVersion: "go1.25.0"}, "1.4.0-abc1234 (go1.25.0)"},
		{"dirty", Info{Version: "1.4.0", Commit: "abc1234", Dirty: true}, "1.4.0-abc1234-dirty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.String(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsRelease(t *testing.T) {
	if (Info{Version: "dev"}).IsRelease() {
		t.Error("dev should not be a release")
	}
	if (Info{Version: "1.0.0", Dirty: true}).IsRelease() {
		t.Error("dirty build should not be a release")
	}
	if !(Info{Version: "1.0.0"}).IsRelease() {
		t.Error("expected 1.0.0 to be a release")
	}
}

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.25.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	info := fromBuildInfo(Info{Version: "dev"}, bi)
	if info.Commit != "0123456789abcdef" || !info.Dirty || info.GoVersion != "go1.25.0" {
		t.Errorf("unexpected info %+v", info)
	}

	info = fromBuildInfo(Info{Version: "1.0.0", Commit: "fixed"}, bi)
	if info.Commit != "fixed" {
		t.Errorf("expected link-time commit to win, got %q", info.Commit)
	}
}

func TestGetTruncatesCommit(t *testing.T) {
	orig := Commit
	defer func() { Commit = orig }()
	Commit = "0123456789abcdef"

	if got := Get().Commit; got != "0123456" {
		t.Errorf("expected short commit, got %q", got)
	}
}
