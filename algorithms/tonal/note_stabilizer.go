package tonal

import (
	"time"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/evidence"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// StabilizerParams configures note debouncing
type StabilizerParams struct {
	HistorySize     int           `json:"history_size"`      // median window of accepted estimates
	MinConfidence   float64       `json:"min_confidence"`    // estimates at or below are treated as unclear
	SilenceRMS      float64       `json:"silence_rms"`       // frames below are treated as silence
	MinNoteDuration time.Duration `json:"min_note_duration"` // shorter holds are dropped
}

// DefaultStabilizerParams returns a 7-estimate median with an 80 ms minimum note
func DefaultStabilizerParams() StabilizerParams {
	return StabilizerParams{
		HistorySize:     7,
		MinConfidence:   0.3,
		SilenceRMS:      0.01,
		MinNoteDuration: 80 * time.Millisecond,
	}
}

// StabilizedFrame is the outcome of one stabilizer update
type StabilizedFrame struct {
	// Note is the median-smoothed current note; valid when HasNote is set
	Note    theory.Note
	HasNote bool

	// Event is the note finalized by this update, if any
	Event *evidence.NoteEvent
}

// NoteStabilizer turns frame-level pitch estimates into debounced note events.
// It is not safe for concurrent use.
type NoteStabilizer struct {
	params  StabilizerParams
	history *common.Ring[float64]

	holding   bool
	heldClass theory.PitchClass
	holdStart time.Time
	confSum   float64
	confCount int
}

// NewNoteStabilizer creates a stabilizer
func NewNoteStabilizer(params StabilizerParams) *NoteStabilizer {
	return &NoteStabilizer{
		params:  params,
		history: common.NewRing[float64](params.HistorySize),
	}
}

// Update feeds one frame. estimate is ignored unless ok is set; rms is the
// frame input level.
func (s *NoteStabilizer) Update(estimate PitchEstimate, ok bool, rms float64, now time.Time) StabilizedFrame {
	accepted := ok &&
		estimate.Frequency > 0 &&
		estimate.Confidence > s.params.MinConfidence &&
		rms >= s.params.SilenceRMS

	if !accepted {
		frame := StabilizedFrame{Event: s.finalize(now)}
		s.holding = false
		s.history.Clear()
		return frame
	}

	s.history.Push(estimate.Frequency)
	median := common.UpperMedian(s.history.Slice())

	note, valid := theory.FrequencyToNote(median)
	if !valid {
		return StabilizedFrame{}
	}

	var event *evidence.NoteEvent
	if !s.holding || note.PitchClass != s.heldClass {
		event = s.finalize(now)
		s.holding = true
		s.heldClass = note.PitchClass
		s.holdStart = now
		s.confSum = 0
		s.confCount = 0
	}
	s.confSum += estimate.Confidence
	s.confCount++

	return StabilizedFrame{Note: note, HasNote: true, Event: event}
}

// finalize emits the held note if it lasted long enough
func (s *NoteStabilizer) finalize(now time.Time) *evidence.NoteEvent {
	if !s.holding {
		return nil
	}
	duration := now.Sub(s.holdStart)
	if duration < s.params.MinNoteDuration || s.confCount == 0 {
		return nil
	}
	return &evidence.NoteEvent{
		PitchClass: s.heldClass,
		Timestamp:  s.holdStart,
		Duration:   duration,
		Confidence: common.Clamp01(s.confSum / float64(s.confCount)),
	}
}

// Holding reports the currently held pitch class
func (s *NoteStabilizer) Holding() (theory.PitchClass, bool) {
	return s.heldClass, s.holding
}

// Reset drops the held note and the median window without emitting
func (s *NoteStabilizer) Reset() {
	s.history.Clear()
	s.holding = false
	s.confSum = 0
	s.confCount = 0
}
