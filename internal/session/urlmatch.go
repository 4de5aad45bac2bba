package session

import (
	"net/url"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsManifestURL reports whether rawURL names a repos-manifest view: the
// final path segment contains the reserved extension marker, or the path
// matches one of the optional widening glob patterns.
func IsManifestURL(rawURL, marker string, patterns []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	segment := path.Base(u.Path)
	if segment != "." && segment != "/" && marker != "" && strings.Contains(segment, marker) {
		return true
	}

	relPath := strings.TrimPrefix(u.Path, "/")
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
