// Package version holds the application version, overridable at build time
// with -ldflags "-X .../internal/version.Version=...".
package version

// Version is the application version string.
var Version = "1.2.0"
