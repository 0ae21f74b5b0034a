package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFillFrom(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	tests := []struct {
		name          string
		stamped       string
		main          string
		wantVersion   string
		wantCommit    string
		wantTimestamp string
	}{
		{"module version", "dev", "v0.3.0", "v0.3.0", "abc123", "2026-01-02T03:04:05Z"},
		{"devel build", "dev", "(devel)", "dev", "abc123", "2026-01-02T03:04:05Z"},
		{"ldflags win", "v1.0.0", "v0.3.0", "v1.0.0", "abc123", "2026-01-02T03:04:05Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version, Commit, Date = tt.stamped, "none", "unknown"
			fillFrom(&debug.BuildInfo{
				Main: debug.Module{Version: tt.main},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "abc123"},
					{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
				},
			})
			if Version != tt.wantVersion || Commit != tt.wantCommit || Date != tt.wantTimestamp {
				t.Errorf("got %s %s %s", Version, Commit, Date)
			}
		})
	}
}

func TestTemplate(t *testing.T) {
	got := Template()
	if !strings.HasPrefix(got, "{{.Name}} version: ") || !strings.HasSuffix(got, "\n") {
		t.Errorf("Template() = %q", got)
	}
}
