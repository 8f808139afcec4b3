// Package evidence records stabilized note events and derives the per
// pitch-class weights used by key and scale inference.
package evidence

import (
	"errors"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

var (
	// ErrShortNote is returned when a note is shorter than the ledger minimum
	ErrShortNote = errors.New("evidence: note shorter than minimum duration")

	// ErrInvalidPitchClass is returned for pitch classes outside 0..11
	ErrInvalidPitchClass = errors.New("evidence: invalid pitch class")
)

// NoteEvent is one debounced note. Timestamp is the onset.
type NoteEvent struct {
	PitchClass theory.PitchClass `json:"pitch_class"`
	Timestamp  time.Time         `json:"timestamp"`
	Duration   time.Duration     `json:"duration"`
	Confidence float64           `json:"confidence"`
}

// End returns the release time of the note
func (e NoteEvent) End() time.Time {
	return e.Timestamp.Add(e.Duration)
}

// LedgerParams configures a Ledger
type LedgerParams struct {
	Capacity    int           `json:"capacity"`
	MinDuration time.Duration `json:"min_duration"`
}

// DefaultLedgerParams keeps the last 100 notes of at least 80 ms
func DefaultLedgerParams() LedgerParams {
	return LedgerParams{
		Capacity:    100,
		MinDuration: 80 * time.Millisecond,
	}
}

// Ledger is a bounded FIFO of note events plus session-cumulative counters.
// The window (Events, Summary, TonicPrior) is capped at Capacity while
// Occurrences and TotalObserved count every note since the last Clear.
// It is not safe for concurrent use.
type Ledger struct {
	params      LedgerParams
	events      *common.Ring[NoteEvent]
	occurrences [theory.NumPitchClasses]int
	total       int
}

// NewLedger creates an empty ledger
func NewLedger(params LedgerParams) *Ledger {
	if params.Capacity < 1 {
		params.Capacity = DefaultLedgerParams().Capacity
	}
	return &Ledger{
		params: params,
		events: common.NewRing[NoteEvent](params.Capacity),
	}
}

// Append records a note, evicting the oldest when full. Confidence is
// clamped to [0,1].
func (l *Ledger) Append(ev NoteEvent) error {
	if !ev.PitchClass.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPitchClass, int(ev.PitchClass))
	}
	if ev.Duration < l.params.MinDuration {
		return fmt.Errorf("%w: %s < %s", ErrShortNote, ev.Duration, l.params.MinDuration)
	}
	ev.Confidence = common.Clamp01(ev.Confidence)

	l.events.Push(ev)
	l.occurrences[ev.PitchClass]++
	l.total++
	return nil
}

// Len returns the number of notes in the window
func (l *Ledger) Len() int {
	return l.events.Len()
}

// Cap returns the window capacity
func (l *Ledger) Cap() int {
	return l.events.Cap()
}

// Events returns the window oldest-first
func (l *Ledger) Events() []NoteEvent {
	return l.events.Slice()
}

// Recent returns up to n most recent notes, oldest-first
func (l *Ledger) Recent(n int) []NoteEvent {
	return l.events.Last(n)
}

// Occurrences returns the session-cumulative count per pitch class
func (l *Ledger) Occurrences() [theory.NumPitchClasses]int {
	return l.occurrences
}

// TotalObserved returns the number of notes recorded since the last Clear
func (l *Ledger) TotalObserved() int {
	return l.total
}

// Summary aggregates the window per pitch class
func (l *Ledger) Summary() Summary {
	return Summarize(l.events.Slice())
}

// Competence returns the competence score of every pitch class in the window
func (l *Ledger) Competence() [theory.NumPitchClasses]float64 {
	s := l.Summary()
	var out [theory.NumPitchClasses]float64
	for pc := range s.Classes {
		out[pc] = s.Classes[pc].Competence
	}
	return out
}

// TonicPrior computes the dominant-tonic prior as of now
func (l *Ledger) TonicPrior(now time.Time, params PriorParams) Prior {
	events := l.events.Slice()
	return ComputePrior(events, Summarize(events), now, params)
}

// Clear drops all notes and resets the cumulative counters
func (l *Ledger) Clear() {
	l.events.Clear()
	l.occurrences = [theory.NumPitchClasses]int{}
	l.total = 0
}
