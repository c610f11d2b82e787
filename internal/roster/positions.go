package roster

// Position is a slot in the lineup.
type Position string

const (
	PosC     Position = "C"
	PosLW    Position = "LW"
	PosRW    Position = "RW"
	PosLD    Position = "LD"
	PosRD    Position = "RD"
	PosG     Position = "G"
	PosUtil  Position = "UTIL"
	PosUtil2 Position = "UTIL2"
)

// AllPositions is the canonical order. Iteration over a roster always uses
// this slice, never map order.
var AllPositions = []Position{PosC, PosLW, PosRW, PosLD, PosRD, PosG, PosUtil, PosUtil2}

// StarterPositions are the six slots that must be filled and confirmed
// before puck drop. UTIL/UTIL2 are the fallback pool.
var StarterPositions = []Position{PosC, PosLW, PosRW, PosLD, PosRD, PosG}

// PracticePositions is the subset a practice lobby uses.
var PracticePositions = []Position{PosC, PosLW, PosRW, PosLD, PosRD, PosG}

// ParsePosition validates a raw slot name.
func ParsePosition(s string) (Position, bool) {
	for _, p := range AllPositions {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// IsStarter reports whether p is one of the six starter slots.
func IsStarter(p Position) bool {
	for _, s := range StarterPositions {
		if p == s {
			return true
		}
	}
	return false
}

// Human returns the label used in claim requests.
func Human(p Position) string {
	if p == PosG {
		return "Goalie"
	}
	return string(p)
}
