package dataset

import "strings"

// MatchKind tags which strategy resolved a floor reference. The map layer
// passes floor identifiers that don't always equal the dataset's floor ids,
// so resolution runs an ordered chain of strategies.
type MatchKind string

const (
	MatchExact      MatchKind = "exact"
	MatchSubstring  MatchKind = "substring"
	MatchSuffix     MatchKind = "suffix"
	MatchFirstFloor MatchKind = "first-floor"
	MatchNone       MatchKind = "none"
)

// Degraded reports whether the match fell through to the first-floor
// fallback, which callers should log rather than treat as a clean hit.
func (k MatchKind) Degraded() bool {
	return k == MatchFirstFloor
}

// MatchFloor resolves an external floor reference against the parsed floors.
// Strategies run in order: exact id, substring either way, suffix, then the
// first floor as a last resort. Returns nil with MatchNone only when the
// dataset has no floors at all.
func MatchFloor(floors []*Floor, ref string) (*Floor, MatchKind) {
	if len(floors) == 0 {
		return nil, MatchNone
	}

	for _, f := range floors {
		if f.ID == ref {
			return f, MatchExact
		}
	}
	for _, f := range floors {
		if ref != "" && (strings.Contains(f.ID, ref) || strings.Contains(ref, f.ID)) {
			return f, MatchSubstring
		}
	}
	for _, f := range floors {
		if ref != "" && (strings.HasSuffix(f.ID, ref) || strings.HasSuffix(ref, f.ID)) {
			return f, MatchSuffix
		}
	}
	return floors[0], MatchFirstFloor
}
