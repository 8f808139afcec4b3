package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-tonal/source"
	"github.com/RyanBlaney/sonido-tonal/theory"
	"github.com/RyanBlaney/sonido-tonal/transcode"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"440", 440},
		{"A4", 440},
		{"A3", 220},
		{"C4", theory.NoteFrequency(theory.C, 4)},
		{"F#2", theory.NoteFrequency(theory.FSharp, 2)},
	}
	for _, tt := range tests {
		got, err := parseFrequency(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}

	for _, bad := range []string{"", "-5", "H4", "A", "Ax"} {
		_, err := parseFrequency(bad)
		assert.Error(t, err, bad)
	}
}

func TestSnapshotWriterYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	w := snapshotWriter{w: &buf, format: "yaml"}
	require.NoError(t, w.write(struct {
		IsListening bool `json:"is_listening"`
	}{true}))

	assert.Equal(t, "---\nis_listening: true\n", buf.String())
}

func TestScalesCommandRanksNotes(t *testing.T) {
	out := execute(t, "scales", "--notes", "C,D,E,F,G,A,B", "-o", "json")

	var candidates []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &candidates))
	require.NotEmpty(t, candidates)
	assert.LessOrEqual(t, len(candidates), 5)
}

func TestTemplateEntrySpellsRoot(t *testing.T) {
	major, ok := theory.DefaultCatalog().Lookup("major")
	require.True(t, ok)

	root := theory.D
	e := newTemplateEntry(major, &root)
	assert.Equal(t, []string{"D", "E", "F#", "G", "A", "B", "C#"}, e.PitchClasses)
	assert.Empty(t, newTemplateEntry(major, nil).PitchClasses)
}

func TestSummarizeNotes(t *testing.T) {
	summary, err := summarizeNotes([]string{"C", " E", "C"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Classes[theory.C].Count)
	assert.Equal(t, 1, summary.Classes[theory.E].Count)

	_, err = summarizeNotes([]string{"C", "X"})
	assert.Error(t, err)
}

func TestRenderThenListen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	execute(t, "render", "--notes", "A4,A4", "--out", path)

	data, err := transcode.NewDecoder(nil).DecodeFile(path)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, data.Duration.Seconds(), 0.01)

	out := execute(t, "listen", "--wav", path, "--duration", "900ms", "--every", "1", "-o", "json")
	dec := json.NewDecoder(bytes.NewBufferString(out))
	var notes []string
	for dec.More() {
		var snap struct {
			CurrentNote *struct {
				Name string `json:"name"`
			} `json:"current_note"`
		}
		require.NoError(t, dec.Decode(&snap))
		if snap.CurrentNote != nil {
			notes = append(notes, snap.CurrentNote.Name)
		}
	}
	require.NotEmpty(t, notes)
	assert.Contains(t, notes, "A4")
}

func TestRenderPartialsFades(t *testing.T) {
	out := renderPartials(source.HarmonicTone(440, 1), 1000, 44100)
	assert.Len(t, out, 1000)
	assert.Zero(t, out[0])
	assert.Zero(t, out[999])
}
