package engine

import (
	"github.com/RyanBlaney/sonido-tonal/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonal/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// State is the engine lifecycle state
type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	default:
		return "unknown"
	}
}

// DetectedKey is the key reported in a snapshot
type DetectedKey struct {
	Tonic theory.PitchClass `json:"tonic"`
	Mode  theory.Mode       `json:"mode"`
	Label string            `json:"label"`
}

// CurrentNote is the stabilized note reported in a snapshot
type CurrentNote struct {
	Name       string            `json:"name"`
	PitchClass theory.PitchClass `json:"pitch_class"`
	Octave     int               `json:"octave"`
	Cents      float64           `json:"cents"`
}

// Snapshot is the complete engine output for one tick. Emitted snapshots
// are shared between subscribers and must be treated as read-only.
type Snapshot struct {
	IsListening           bool                          `json:"is_listening"`
	CurrentNote           *CurrentNote                  `json:"current_note"`
	CurrentNoteFrequency  *float64                      `json:"current_note_frequency_hz"`
	DetectedKey           *DetectedKey                  `json:"detected_key"`
	KeyConfidence         float64                       `json:"key_confidence"`
	Chroma                chroma.ChromaVector           `json:"chroma_vector"`
	InputLevel            float64                       `json:"input_level"`
	KeyHistogram          map[string]int                `json:"key_histogram"`
	PitchClassOccurrences map[theory.PitchClass]int     `json:"pitch_class_occurrences"`
	PitchClassCompetence  map[theory.PitchClass]float64 `json:"pitch_class_competence"`
	RecentNotes           []theory.PitchClass           `json:"recent_notes"`
	ScaleCandidates       []tonal.ScaleCandidate        `json:"scale_candidates"`
	TotalNotesObserved    int                           `json:"total_notes_observed"`
	AccelerationAvailable bool                          `json:"acceleration_available"`
}

// idleSnapshot is the empty state reported while stopped
func idleSnapshot() Snapshot {
	return Snapshot{
		KeyHistogram:          map[string]int{},
		PitchClassOccurrences: map[theory.PitchClass]int{},
		PitchClassCompetence:  map[theory.PitchClass]float64{},
		RecentNotes:           []theory.PitchClass{},
		ScaleCandidates:       []tonal.ScaleCandidate{},
	}
}

func newCurrentNote(n theory.Note) *CurrentNote {
	return &CurrentNote{
		Name:       n.Name(),
		PitchClass: n.PitchClass,
		Octave:     n.Octave,
		Cents:      n.Cents,
	}
}

func newDetectedKey(k theory.Key) *DetectedKey {
	return &DetectedKey{Tonic: k.Tonic, Mode: k.Mode, Label: k.Label()}
}
