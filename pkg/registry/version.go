package registry

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders version strings and returns -1, 0 or 1.
//
// Versions that parse as semantic versions (a leading "v" is allowed and
// missing minor/patch parts are zero, so "v2" < "v10") compare numerically and
// rank above any version that does not parse. Unparseable versions, and
// semantic versions that are equal ("v1" and "1.0.0"), fall back to byte-wise
// string comparison, which makes the order total.
func CompareVersions(a, b string) int {
	va, errA := parseVersion(a)
	vb, errB := parseVersion(b)

	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}

	return strings.Compare(a, b)
}

// SortVersions sorts versions in place, oldest first.
func SortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
}

func parseVersion(v string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimSpace(v))
}
