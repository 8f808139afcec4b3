package theory

import "fmt"

// Mode represents major or minor mode
type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes "major" or "minor"
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "major":
		*m = Major
	case "minor":
		*m = Minor
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// Key is a tonic plus mode
type Key struct {
	Tonic PitchClass `json:"tonic"`
	Mode  Mode       `json:"mode"`
}

// Label returns the human-readable key name, e.g. "C major"
func (k Key) Label() string {
	return fmt.Sprintf("%s %s", k.Tonic, k.Mode)
}

// PitchClassSet is a bitset over the 12 pitch classes
type PitchClassSet uint16

// NewPitchClassSet builds a set from the given pitch classes
func NewPitchClassSet(classes ...PitchClass) PitchClassSet {
	var s PitchClassSet
	for _, pc := range classes {
		s = s.Add(pc)
	}
	return s
}

// Add returns the set with pc included
func (s PitchClassSet) Add(pc PitchClass) PitchClassSet {
	return s | 1<<uint(mod12(int(pc)))
}

// Contains reports whether pc is in the set
func (s PitchClassSet) Contains(pc PitchClass) bool {
	return s&(1<<uint(mod12(int(pc)))) != 0
}

// Len returns the number of pitch classes in the set
func (s PitchClassSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Intersect returns the pitch classes present in both sets
func (s PitchClassSet) Intersect(other PitchClassSet) PitchClassSet {
	return s & other
}

// Difference returns the pitch classes in s that are not in other
func (s PitchClassSet) Difference(other PitchClassSet) PitchClassSet {
	return s &^ other
}

// Classes lists the members in ascending pitch-class order
func (s PitchClassSet) Classes() []PitchClass {
	classes := make([]PitchClass, 0, s.Len())
	for pc := range PitchClass(NumPitchClasses) {
		if s.Contains(pc) {
			classes = append(classes, pc)
		}
	}
	return classes
}
