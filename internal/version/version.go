package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is set at build time with:
// -ldflags "-X github.com/rvbeek/repolens/internal/version.Version=vX.Y.Z"
var Version = "dev"

// MinShimVersion is the oldest browser shim protocol this service accepts.
const MinShimVersion = "v0.3.0"

func Current() string {
	v := strings.TrimSpace(Version)
	if v == "" {
		return "dev"
	}
	return v
}

// ShimSupported reports whether a shim reporting version v speaks a
// protocol this service still serves. A leading "v" is optional; anything
// that is not valid semver is unsupported.
func ShimSupported(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return false
	}
	return semver.Compare(v, MinShimVersion) >= 0
}
