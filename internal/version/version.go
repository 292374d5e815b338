package version

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "1.0.0"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}

// IsNewer reports whether candidate is a higher dotted version than
// current. A leading "v" is ignored and non-numeric parts count as zero.
func IsNewer(candidate, current string) bool {
	a, b := splitVersion(candidate), splitVersion(current)

	for i := range max(len(a), len(b)) {
		var x, y int

		if i < len(a) {
			x = a[i]
		}

		if i < len(b) {
			y = b[i]
		}

		if x != y {
			return x > y
		}
	}

	return false
}

func splitVersion(v string) []int {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")

	// Drop pre-release and build suffixes such as "-rc1" or "+dirty".
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}

	parts := strings.Split(v, ".")
	result := make([]int, len(parts))

	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err == nil {
			result[i] = n
		}
	}

	return result
}
