// Package registry resolves canonical signals to concrete wire addresses
// against a dynamically-discovered avatar parameter schema: the hardest
// part of the output side (§4.E).
package registry

import "strings"

// DefaultPrefix is the fixed root every resolved address is rooted at.
const DefaultPrefix = "/avatar/parameters/"

// isVersionSegment reports whether seg looks like a version segment
// ("v2", "v17", ...): a lowercase 'v' followed by one or more digits.
func isVersionSegment(seg string) bool {
	if len(seg) < 2 || seg[0] != 'v' {
		return false
	}
	for _, r := range seg[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MatchesAddress applies the address-matching rule of §4.E: after
// stripping the fixed /avatar/parameters/ prefix, accept an exact match on
// name, or a suffix match ".../{name}" — except when the path segment
// immediately preceding the trailing "/{name}" looks like a version
// segment ("v\d+"), which is rejected as nested versioning.
func MatchesAddress(name, addr string) bool {
	stripped, ok := strings.CutPrefix(addr, DefaultPrefix)
	if !ok {
		return false
	}

	if stripped == name {
		return true
	}

	suffix := "/" + name
	if !strings.HasSuffix(stripped, suffix) {
		return false
	}

	before := stripped[:len(stripped)-len(suffix)]
	if before == "" {
		// e.g. name itself contains a leading slash; treat as accepted
		// suffix match with nothing preceding it.
		return true
	}

	lastSlash := strings.LastIndexByte(before, '/')
	precedingSegment := before[lastSlash+1:]
	if isVersionSegment(precedingSegment) {
		return false
	}
	return true
}
