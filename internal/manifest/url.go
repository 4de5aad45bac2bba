package manifest

import (
	"regexp"
	"strings"
)

var (
	sshURLPattern = regexp.MustCompile(`^git@([A-Za-z0-9.-]+):([^/\s]+/\S+)$`)
	commitHash    = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// ConvertSSHURL rewrites a git@<domain>:<owner>/<repo>.git address to its
// HTTPS web form. The second return value is false when the input does not
// match the SSH shape.
func ConvertSSHURL(raw string) (string, bool) {
	m := sshURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return "https://" + m[1] + "/" + m[2], true
}

// IsCommitHash reports whether v is a 40-character lowercase hex revision
// id. Uppercase hex is treated as a branch or tag name.
func IsCommitHash(v string) bool {
	return commitHash.MatchString(v)
}

// LinkURL builds the navigable web URL for a repository: the base URL with
// a single trailing .git removed, suffixed with /blob/<rev> for an exact
// revision or /tree/<ref> for a branch or tag. An empty version means the
// default branch and leaves the base URL unchanged.
func LinkURL(base, version string) string {
	base = strings.TrimSuffix(base, ".git")
	version = strings.TrimSpace(version)
	switch {
	case version == "":
		return base
	case IsCommitHash(version):
		return base + "/blob/" + version
	default:
		return base + "/tree/" + version
	}
}
