// Package buildinfo contains build-time information embedded via ldflags
package buildinfo

import "runtime/debug"

// Version is the application version, set at build time via ldflags
// Example: go build -ldflags "-X github.com/YoshitsuguKoike/deepatch/internal/buildinfo.Version=v0.3.0"
var Version = "dev"

// GetVersion returns the ldflags version, then the module version, then "dev"
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

// UserAgent is sent to hosting and generation APIs
func UserAgent() string {
	return "deepatch/" + GetVersion()
}
