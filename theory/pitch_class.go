// Package theory holds the shared musical vocabulary: pitch classes, note
// naming, key modes and the scale template catalog.
package theory

import (
	"fmt"
	"math"
	"strings"
)

// ReferenceFrequency is the tuning reference (A4) in Hz
const ReferenceFrequency = 440.0

// PitchClass represents one of the 12 equal-tempered pitch classes (0=C, 1=C#, ..., 11=B)
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

// NumPitchClasses is the size of the chromatic circle
const NumPitchClasses = 12

var pitchClassNames = [NumPitchClasses]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// String returns the sharp-spelled name of the pitch class
func (pc PitchClass) String() string {
	if !pc.Valid() {
		return fmt.Sprintf("PitchClass(%d)", int(pc))
	}
	return pitchClassNames[pc]
}

// Valid reports whether pc is in [0, 11]
func (pc PitchClass) Valid() bool {
	return pc >= 0 && pc < NumPitchClasses
}

// MarshalText encodes the pitch class by name so it can key JSON objects
func (pc PitchClass) MarshalText() ([]byte, error) {
	if !pc.Valid() {
		return nil, fmt.Errorf("invalid pitch class %d", int(pc))
	}
	return []byte(pc.String()), nil
}

// UnmarshalText parses a note name
func (pc *PitchClass) UnmarshalText(text []byte) error {
	parsed, err := ParsePitchClass(string(text))
	if err != nil {
		return err
	}
	*pc = parsed
	return nil
}

// Transpose returns the pitch class shifted by semitones, wrapped into [0, 11]
func (pc PitchClass) Transpose(semitones int) PitchClass {
	return PitchClass(mod12(int(pc) + semitones))
}

// ParsePitchClass parses a sharp or flat spelled note name such as "C#", "Db" or "a"
func ParsePitchClass(name string) (PitchClass, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return 0, fmt.Errorf("empty pitch class name")
	}

	base := strings.ToUpper(s[:1])
	idx := -1
	for i, n := range pitchClassNames {
		if n == base {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("unknown pitch class %q", name)
	}

	for _, accidental := range s[1:] {
		switch accidental {
		case '#', '♯':
			idx++
		case 'b', '♭':
			idx--
		default:
			return 0, fmt.Errorf("unknown pitch class %q", name)
		}
	}

	return PitchClass(mod12(idx)), nil
}

// Note is a pitch class placed in an octave, with its tuning deviation
type Note struct {
	PitchClass PitchClass `json:"pitch_class"`
	Octave     int        `json:"octave"`
	Frequency  float64    `json:"frequency"`
	Cents      float64    `json:"cents"` // deviation from the tempered pitch (-50..+50)
}

// Name returns scientific pitch notation, e.g. "A4"
func (n Note) Name() string {
	return fmt.Sprintf("%s%d", n.PitchClass, n.Octave)
}

// SemitonesFromReference returns the (fractional) semitone distance of freq from A4
func SemitonesFromReference(freq float64) float64 {
	return 12 * math.Log2(freq/ReferenceFrequency)
}

// FrequencyToPitchClass maps a frequency to the nearest pitch class
func FrequencyToPitchClass(freq float64) PitchClass {
	semitones := int(math.Round(SemitonesFromReference(freq)))
	return A.Transpose(semitones)
}

// FrequencyToNote maps a frequency to the nearest tempered note. The second
// return value is false for non-positive or non-finite frequencies.
func FrequencyToNote(freq float64) (Note, bool) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return Note{}, false
	}

	semitones := SemitonesFromReference(freq)
	rounded := math.Round(semitones)

	// A4 sits 9 semitones above C4
	fromC4 := int(rounded) + 9
	octave := 4 + floorDiv(fromC4, NumPitchClasses)

	return Note{
		PitchClass: PitchClass(mod12(fromC4)),
		Octave:     octave,
		Frequency:  freq,
		Cents:      100 * (semitones - rounded),
	}, true
}

// NoteFrequency returns the tempered frequency of pc in the given octave
func NoteFrequency(pc PitchClass, octave int) float64 {
	semitones := (octave-4)*NumPitchClasses + int(pc) - int(A)
	return ReferenceFrequency * math.Pow(2, float64(semitones)/12)
}

func mod12(v int) int {
	return ((v % NumPitchClasses) + NumPitchClasses) % NumPitchClasses
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
