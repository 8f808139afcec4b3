package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonal/theory"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func note(pc theory.PitchClass, at time.Duration, dur time.Duration, conf float64) NoteEvent {
	return NoteEvent{PitchClass: pc, Timestamp: epoch.Add(at), Duration: dur, Confidence: conf}
}

func TestLedgerFIFOEviction(t *testing.T) {
	l := NewLedger(LedgerParams{Capacity: 5, MinDuration: 80 * time.Millisecond})

	for i := range 12 {
		pc := theory.PitchClass(i % theory.NumPitchClasses)
		require.NoError(t, l.Append(note(pc, time.Duration(i)*time.Second, 200*time.Millisecond, 0.9)))
		assert.LessOrEqual(t, l.Len(), 5)
	}

	assert.Equal(t, 5, l.Len())
	assert.Equal(t, 5, l.Cap())
	assert.Equal(t, 12, l.TotalObserved())

	events := l.Events()
	require.Len(t, events, 5)
	assert.Equal(t, theory.G, events[0].PitchClass)
	assert.Equal(t, theory.B, events[4].PitchClass)

	recent := l.Recent(2)
	assert.Equal(t, []theory.PitchClass{theory.ASharp, theory.B}, []theory.PitchClass{recent[0].PitchClass, recent[1].PitchClass})

	// occurrences are cumulative across evictions
	occ := l.Occurrences()
	assert.Equal(t, 1, occ[theory.C])
	assert.Equal(t, 1, occ[theory.B])
}

func TestLedgerRejectsInvalidNotes(t *testing.T) {
	l := NewLedger(DefaultLedgerParams())

	err := l.Append(note(theory.C, 0, 50*time.Millisecond, 1))
	assert.ErrorIs(t, err, ErrShortNote)

	err = l.Append(note(theory.PitchClass(13), 0, time.Second, 1))
	assert.ErrorIs(t, err, ErrInvalidPitchClass)

	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.TotalObserved())
}

func TestLedgerClampsConfidenceAndClears(t *testing.T) {
	l := NewLedger(DefaultLedgerParams())
	require.NoError(t, l.Append(note(theory.E, 0, time.Second, 1.7)))
	assert.Equal(t, 1.0, l.Events()[0].Confidence)

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0, l.TotalObserved())
	assert.Equal(t, [theory.NumPitchClasses]int{}, l.Occurrences())
}

func TestSummarizeCompetence(t *testing.T) {
	events := []NoteEvent{
		note(theory.C, 0, 1*time.Second, 1.0),
		note(theory.C, 1*time.Second, 1*time.Second, 1.0),
		note(theory.G, 2*time.Second, 500*time.Millisecond, 0.5),
	}
	s := Summarize(events)

	assert.Equal(t, 2, s.Distinct())
	assert.Equal(t, 2, s.Classes[theory.C].Count)
	assert.Equal(t, 2*time.Second, s.Classes[theory.C].TotalDuration)
	assert.InDelta(t, 1.0, s.Classes[theory.C].Competence, 1e-12)

	// 0.4·(1/2) + 0.4·(0.5/2) + 0.2·(0.5/1)
	assert.InDelta(t, 0.2+0.1+0.1, s.Classes[theory.G].Competence, 1e-12)
	assert.InDelta(t, 0.25, s.Classes[theory.G].NormalizedDuration, 1e-12)

	for pc, c := range s.Classes {
		assert.GreaterOrEqual(t, c.Competence, 0.0, "pc %d", pc)
		assert.LessOrEqual(t, c.Competence, 1.0, "pc %d", pc)
	}

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Distinct())
}

func TestTonicPriorDominantClass(t *testing.T) {
	l := NewLedger(DefaultLedgerParams())
	require.NoError(t, l.Append(note(theory.D, 0, 2*time.Second, 0.9)))
	require.NoError(t, l.Append(note(theory.D, 3*time.Second, 2*time.Second, 0.9)))
	require.NoError(t, l.Append(note(theory.A, 6*time.Second, 200*time.Millisecond, 0.6)))

	prior := l.TonicPrior(epoch.Add(7*time.Second), DefaultPriorParams())
	require.True(t, prior.Found)
	assert.Equal(t, theory.D, prior.PitchClass)
	assert.Greater(t, prior.Strength, 0.8)
	assert.LessOrEqual(t, prior.Strength, 1.0)
}

func TestTonicPriorIgnoresOldNotes(t *testing.T) {
	l := NewLedger(DefaultLedgerParams())
	require.NoError(t, l.Append(note(theory.D, 0, time.Second, 0.9)))

	prior := l.TonicPrior(epoch.Add(30*time.Second), DefaultPriorParams())
	assert.False(t, prior.Found)
	assert.Equal(t, 0.0, prior.Strength)
}

func TestTonicPriorRejectsFlatDistribution(t *testing.T) {
	var events []NoteEvent
	for i := range theory.NumPitchClasses {
		events = append(events, note(theory.PitchClass(i), 0, time.Second, 0.8))
	}
	prior := ComputePrior(events, Summarize(events), epoch.Add(time.Second), DefaultPriorParams())

	// each class holds 1/12 of the weight
	assert.False(t, prior.Found)
	assert.Equal(t, 0.0, prior.Strength)
}
