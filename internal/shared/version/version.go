// Package version holds the build version, overridable with
// -ldflags "-X wlscope/internal/shared/version.Version=...".
package version

var Version = "0.3.0-dev"
