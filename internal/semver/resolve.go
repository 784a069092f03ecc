// Package semver resolves a requested library version against the set of
// versions actually indexed for a library, following the partial-semver
// matching rules described for the hybrid search store (§4.4 version
// resolution): an exact request must match exactly, a partial request
// ("1", "1.2") picks the highest matching release, and an empty request
// matches only the unversioned row.
package semver

import (
	"sort"
	"strings"

	mastersemver "github.com/Masterminds/semver/v3"
)

// Resolve returns the candidate that best satisfies target. ok is false if
// no candidate satisfies it. candidates may contain "" for the unversioned
// entry; it is only ever returned when target is also "".
func Resolve(candidates []string, target string) (best string, ok bool) {
	if target == "" {
		for _, c := range candidates {
			if c == "" {
				return "", true
			}
		}

		return "", false
	}

	if exact, err := mastersemver.StrictNewVersion(target); err == nil {
		for _, c := range candidates {
			if c == "" {
				continue
			}

			if cv, parseErr := mastersemver.NewVersion(c); parseErr == nil && cv.Equal(exact) {
				return c, true
			}
		}

		return "", false
	}

	constraint, err := mastersemver.NewConstraint(wildcardConstraint(target))
	if err != nil {
		return "", false
	}

	index := map[*mastersemver.Version]string{}

	var versions []*mastersemver.Version

	for _, c := range candidates {
		if c == "" {
			continue
		}

		cv, parseErr := mastersemver.NewVersion(c)
		if parseErr != nil {
			continue
		}

		if constraint.Check(cv) {
			versions = append(versions, cv)
			index[cv] = c
		}
	}

	if len(versions) == 0 {
		return "", false
	}

	sort.Sort(mastersemver.Collection(versions))

	highest := versions[len(versions)-1]

	return index[highest], true
}

// HasUnversioned reports whether "" (the unversioned entry) is present.
func HasUnversioned(candidates []string) bool {
	for _, c := range candidates {
		if c == "" {
			return true
		}
	}

	return false
}

// wildcardConstraint turns a partial release ("1", "1.2") into a
// Masterminds wildcard range ("1.x.x", "1.2.x"). Inputs that already carry a
// wildcard segment or an operator pass through unchanged.
func wildcardConstraint(target string) string {
	if strings.ContainsAny(target, "x*^~<>=, ") {
		return target
	}

	segments := strings.Split(target, ".")
	if len(segments) >= 3 {
		return target
	}

	for len(segments) < 3 {
		segments = append(segments, "x")
	}

	return strings.Join(segments, ".")
}

// Normalize trims a leading "v" and surrounding whitespace, matching how a
// version string is stored on the Version row.
func Normalize(version string) string {
	version = strings.TrimSpace(version)
	version = strings.TrimPrefix(version, "v")

	return version
}
