package registry

import "sort"

// WireType is the remote-declared type of a discovered OSC Query address.
type WireType int

const (
	Unknown WireType = iota
	Float
	Bool
	Int
)

// Snapshot is an immutable discovery snapshot: a set of wire addresses plus
// their declared types, as advertised by the remote avatar. It is replaced
// atomically on refresh (§3) — callers never mutate a Snapshot in place.
type Snapshot struct {
	Types map[string]WireType
}

// Empty returns a snapshot with no addresses, used to disable every
// parameter when discovery loses its remote (e.g. on ServiceRemoved).
func Empty() *Snapshot {
	return &Snapshot{Types: map[string]WireType{}}
}

// NewSnapshot builds a Snapshot from a set of (address, type) pairs.
func NewSnapshot(types map[string]WireType) *Snapshot {
	if types == nil {
		types = map[string]WireType{}
	}
	return &Snapshot{Types: types}
}

// typeCompatible reports whether a discovered address of type declared is
// acceptable for a parameter expecting want: an exact match, or Unknown
// (undeclared) is always accepted since the remote didn't rule it out.
func typeCompatible(declared, want WireType) bool {
	return declared == want || declared == Unknown
}

// addressesFor returns every discovered address matching name under the
// given type constraint, per §4.E's matching + type-filter rule.
func (s *Snapshot) addressesFor(name string, want WireType) []string {
	var out []string
	for addr, typ := range s.Types {
		if MatchesAddress(name, addr) && typeCompatible(typ, want) {
			out = append(out, addr)
		}
	}
	sort.Strings(out)
	return out
}
