// Package version holds the build-time version string, overridden via
// -ldflags "-X github.com/loykin/openlist-service/internal/version.Version=..."
// in release builds.
package version

var Version = "dev"
