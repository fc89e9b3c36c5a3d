// Package version reports build metadata for the markup binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X github.com/conneroisu/markup/internal/version.Version=v1.2.3".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info contains version and build information
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	BuildTime time.Time `json:"build_time" yaml:"build_time"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
	Release   bool      `json:"is_release" yaml:"is_release"`
	Dirty     bool      `json:"is_dirty" yaml:"is_dirty"`
}

// Get collects build information, falling back to the module build info
// embedded by the Go toolchain when ldflags were not set.
func Get() Info {
	s := readSettings()
	v := resolveVersion(s)
	return Info{
		Version:   v,
		GitCommit: commit(s),
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Release:   isRelease(v),
		Dirty:     s["vcs.modified"] == "true",
	}
}

type buildSettings map[string]string

func readSettings() buildSettings {
	settings := buildSettings{}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}
	settings["main.version"] = info.Main.Version
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	return settings
}

func resolveVersion(s buildSettings) string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if v := s["main.version"]; v != "" && v != "(devel)" {
		return v
	}
	if rev := s["vcs.revision"]; len(rev) >= 7 {
		return "dev-" + rev[:7]
	}

	return "dev"
}

func commit(s buildSettings) string {
	if GitCommit != "" && GitCommit != "unknown" {
		return GitCommit
	}
	if rev := s["vcs.revision"]; rev != "" {
		return rev
	}

	return "unknown"
}

func isRelease(v string) bool {
	return v != "dev" && !strings.HasPrefix(v, "dev-")
}

// Short returns the version with an abbreviated commit.
func (i Info) Short() string {
	if i.GitCommit == "unknown" || len(i.GitCommit) < 7 {
		return i.Version
	}
	if strings.HasPrefix(i.Version, "dev") {
		return "dev-" + i.GitCommit[:7]
	}

	return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit[:7])
}

// Detailed returns one "Key: value" line per known field.
func (i Info) Detailed() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "unknown" {
		lines = append(lines, "Commit: "+i.GitCommit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)
	if i.Dirty {
		lines = append(lines, "Working directory: dirty")
	}

	return strings.Join(lines, "\n")
}

// parseBuildTime accepts RFC 3339 with or without a zone. Anything else is
// the zero time.
func parseBuildTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}
