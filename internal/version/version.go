// Package version reports build information for the moneyclip binaries.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set via -ldflags "-X moneyclip/internal/version.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Info describes the running build
type Info struct {
	Version     string `json:"version"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
	Revision    string `json:"revision,omitempty"`
	CommittedAt string `json:"committed_at,omitempty"`
	Modified    bool   `json:"modified"`
}

// Get collects the ldflags values and the VCS stamp of the binary
func Get() Info {
	info := Info{
		Version:   Version,
		BuildTime: BuildTime,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.time":
			info.CommittedAt = s.Value
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// ShortRevision is the first eight characters of the commit hash
func (i Info) ShortRevision() string {
	if len(i.Revision) > 8 {
		return i.Revision[:8]
	}
	return i.Revision
}

// String returns a one-line summary such as "moneyclip dev (go1.25.0, 1a2b3c4d)"
func (i Info) String() string {
	details := []string{}
	if i.GoVersion != "" {
		details = append(details, i.GoVersion)
	}
	if rev := i.ShortRevision(); rev != "" {
		if i.Modified {
			rev += "+dirty"
		}
		details = append(details, rev)
	}
	if i.BuildTime != "unknown" {
		details = append(details, "built "+i.BuildTime)
	}
	if len(details) == 0 {
		return "moneyclip " + i.Version
	}
	return fmt.Sprintf("moneyclip %s (%s)", i.Version, strings.Join(details, ", "))
}

// Warning describes why the build may not be reproducible, or returns ""
func (i Info) Warning() string {
	switch {
	case i.Modified:
		return "binary built from a modified source tree"
	case i.Revision == "" && i.Version == "dev":
		return "development build without version control information"
	}
	return ""
}
