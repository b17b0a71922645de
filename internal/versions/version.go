// Package versions provides build version information and version
// comparison helpers.
package versions

import "runtime"

// Version is the librarian version, overridden at build time via ldflags.
var Version = "0.1.0-dev"

// Commit is the git commit the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC timestamp of the build.
var BuildDate = "unknown"

// VersionInfo bundles the build information for the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersionInfo returns the build information of the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
