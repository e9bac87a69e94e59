package version

import (
	"strings"
	"testing"
	"time"
)

func withBuildMetadata(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	oldVersion, oldCommit, oldBuildTime := AppVersion, GitCommit, BuildTime
	t.Cleanup(func() {
		AppVersion, GitCommit, BuildTime = oldVersion, oldCommit, oldBuildTime
	})
	AppVersion, GitCommit, BuildTime = version, commit, buildTime
}

func TestCurrent_Defaults(t *testing.T) {
	withBuildMetadata(t, "", "", "")

	info := Current("")

	if info.Service != Unknown {
		t.Errorf("service = %q, want %q", info.Service, Unknown)
	}
	if info.Version != DevelopmentVersion {
		t.Errorf("version = %q, want %q", info.Version, DevelopmentVersion)
	}
	if info.Commit != Unknown {
		t.Errorf("commit = %q, want %q", info.Commit, Unknown)
	}
	if info.BuildTime != Unknown {
		t.Errorf("build_time = %q, want %q", info.BuildTime, Unknown)
	}
}

func TestCurrent_LinkedMetadata(t *testing.T) {
	withBuildMetadata(t, "v1.4.0", "abc1234", "2026-08-30T12:00:00Z")

	info := Current("schedario")

	if info.Service != "schedario" {
		t.Errorf("service = %q, want schedario", info.Service)
	}
	if info.Version != "v1.4.0" {
		t.Errorf("version = %q, want v1.4.0", info.Version)
	}

	v, ok := info.SemVer()
	if !ok {
		t.Fatal("expected the linked version to parse as semver")
	}
	if v.String() != "1.4.0" {
		t.Errorf("semver = %q, want 1.4.0", v.String())
	}

	ts, ok := info.ParseBuildTime()
	if !ok {
		t.Fatal("expected the linked build time to parse")
	}
	if ts.Year() != 2026 {
		t.Errorf("build time year = %d, want 2026", ts.Year())
	}

	if s := info.String(); !strings.Contains(s, "schedario@v1.4.0") {
		t.Errorf("String() = %q, want it to contain schedario@v1.4.0", s)
	}
}

func TestInfo_SemVer_NotSemantic(t *testing.T) {
	info := Info{Service: "schedario", Version: "dev"}

	if _, ok := info.SemVer(); ok {
		t.Error("a dev version must not parse as semver")
	}
}

func TestInfo_ParseBuildTime(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	info := Info{BuildTime: now.Format(time.RFC3339)}

	parsed, ok := info.ParseBuildTime()
	if !ok {
		t.Fatal("expected build time to be parsed")
	}
	if !parsed.Equal(now) {
		t.Fatalf("expected %s, got %s", now, parsed)
	}

	if _, ok := (Info{BuildTime: Unknown}).ParseBuildTime(); ok {
		t.Error("unknown build time must not parse")
	}
}
