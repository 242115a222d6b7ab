// Package version carries the build version stamped into the binary and
// into machine-readable output.
package version

// Version is the release version. Overridden at build time via
// -ldflags "-X github.com/todoscan/todoscan/internal/version.Version=...".
var Version = "0.4.1"
