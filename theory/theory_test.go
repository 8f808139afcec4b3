package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyToNote(t *testing.T) {
	tests := []struct {
		freq   float64
		name   string
		pc     PitchClass
		octave int
	}{
		{440.0, "A4", A, 4},
		{261.63, "C4", C, 4},
		{220.0, "A3", A, 3},
		{246.94, "B3", B, 3},
		{1046.5, "C6", C, 6},
		{466.16, "A#4", ASharp, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, ok := FrequencyToNote(tt.freq)
			require.True(t, ok)
			assert.Equal(t, tt.pc, note.PitchClass)
			assert.Equal(t, tt.octave, note.Octave)
			assert.Equal(t, tt.name, note.Name())
			assert.InDelta(t, 0, note.Cents, 5)
		})
	}

	_, ok := FrequencyToNote(0)
	assert.False(t, ok)
}

func TestFrequencyToPitchClassWrapsBelowReference(t *testing.T) {
	assert.Equal(t, G, FrequencyToPitchClass(98.0))
	assert.Equal(t, E, FrequencyToPitchClass(82.41))
}

func TestNoteFrequencyRoundTrip(t *testing.T) {
	assert.InDelta(t, 440.0, NoteFrequency(A, 4), 1e-9)
	assert.InDelta(t, 261.6256, NoteFrequency(C, 4), 1e-3)
	for pc := range PitchClass(NumPitchClasses) {
		assert.Equal(t, pc, FrequencyToPitchClass(NoteFrequency(pc, 3)))
	}
}

func TestParsePitchClass(t *testing.T) {
	cases := map[string]PitchClass{"C": C, "c#": CSharp, "Db": CSharp, "Bb": ASharp, "Cb": B, "B#": C}
	for in, want := range cases {
		got, err := ParsePitchClass(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePitchClass("H")
	assert.Error(t, err)
	_, err = ParsePitchClass("")
	assert.Error(t, err)
}

func TestPitchClassSet(t *testing.T) {
	s := NewPitchClassSet(C, E, G)
	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains(E))
	assert.False(t, s.Contains(D))

	other := NewPitchClassSet(E, G, B)
	assert.Equal(t, []PitchClass{E, G}, s.Intersect(other).Classes())
	assert.Equal(t, []PitchClass{C}, s.Difference(other).Classes())
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Same(t, c, DefaultCatalog())
	assert.Equal(t, len(StandardTemplates), c.Len())

	major, ok := c.Lookup("major")
	require.True(t, ok)
	assert.Equal(t, ScaleID(0), major.ID)
	assert.Equal(t, NewPitchClassSet(C, D, E, F, G, A, B), major.PitchClasses(C))
	assert.Equal(t, NewPitchClassSet(G, A, B, C, D, E, FSharp), major.PitchClasses(G))

	for _, tmpl := range c.Templates() {
		got, ok := c.Template(tmpl.ID)
		require.True(t, ok)
		assert.Equal(t, tmpl.Name, got.Name)
		assert.GreaterOrEqual(t, tmpl.Cardinality(), MinTemplateSize)
		assert.LessOrEqual(t, tmpl.Cardinality(), MaxTemplateSize)
	}

	_, ok = c.Template(ScaleID(c.Len()))
	assert.False(t, ok)
}

func TestNewCatalogValidation(t *testing.T) {
	_, err := NewCatalog(TemplateDef{"Tiny", []int{0, 4, 7}})
	assert.Error(t, err)

	_, err = NewCatalog(TemplateDef{"NoRoot", []int{1, 4, 7, 9}})
	assert.Error(t, err)

	_, err = NewCatalog(TemplateDef{"Dup", []int{0, 4, 4, 7}})
	assert.Error(t, err)

	_, err = NewCatalog(TemplateDef{"Range", []int{0, 4, 7, 12}})
	assert.Error(t, err)

	_, err = NewCatalog(TemplateDef{"A", []int{0, 2, 4, 7}}, TemplateDef{"a", []int{0, 3, 5, 7}})
	assert.Error(t, err)
}

func TestKeyLabel(t *testing.T) {
	assert.Equal(t, "F# minor", Key{Tonic: FSharp, Mode: Minor}.Label())
	assert.Equal(t, "C major", Key{Tonic: C, Mode: Major}.Label())
}

func TestPitchClassTextEncoding(t *testing.T) {
	b, err := FSharp.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "F#", string(b))

	var pc PitchClass
	require.NoError(t, pc.UnmarshalText([]byte("Eb")))
	assert.Equal(t, DSharp, pc)

	_, err = PitchClass(12).MarshalText()
	assert.Error(t, err)
}

func TestModeTextEncoding(t *testing.T) {
	b, err := Minor.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "minor", string(b))

	var m Mode
	require.NoError(t, m.UnmarshalText([]byte("major")))
	assert.Equal(t, Major, m)
	assert.Error(t, m.UnmarshalText([]byte("dorian")))
}
