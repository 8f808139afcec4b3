package cmd

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/source"
	"github.com/RyanBlaney/sonido-tonal/transcode"
)

var (
	renderNotes    []string
	renderNoteLen  time.Duration
	renderOut      string
	renderHarmonic bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a note sequence to a WAV file",
	Long: `Synthesizes a sequence of notes or frequencies into a 16-bit mono WAV
file, for exercising the listen command without an instrument.

Example:
  sonido render --notes A3,C4,E4,A4 --note-length 400ms --out arpeggio.wav`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringSliceVar(&renderNotes, "notes", nil, "notes (A4) or frequencies (440) in order")
	renderCmd.Flags().DurationVar(&renderNoteLen, "note-length", 500*time.Millisecond, "duration of each note")
	renderCmd.Flags().StringVar(&renderOut, "out", "render.wav", "output WAV file")
	renderCmd.Flags().BoolVar(&renderHarmonic, "harmonics", true, "add overtones to each note")
	renderCmd.MarkFlagRequired("notes")
}

func runRender(cmd *cobra.Command, args []string) error {
	sampleRate := cfg.Analysis.SampleRate
	perNote := int(renderNoteLen.Seconds() * float64(sampleRate))
	if perNote <= 0 {
		return fmt.Errorf("note length %s is too short", renderNoteLen)
	}

	pcm := make([]float64, 0, perNote*len(renderNotes))
	for _, note := range renderNotes {
		freq, err := parseFrequency(note)
		if err != nil {
			return err
		}
		amplitudes := []float64{0.5}
		if renderHarmonic {
			amplitudes = []float64{0.5, 0.25, 0.12}
		}
		pcm = append(pcm, renderPartials(source.HarmonicTone(freq, amplitudes...), perNote, sampleRate)...)
	}

	f, err := os.Create(renderOut)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := transcode.WriteWAV(f, pcm, sampleRate); err != nil {
		return err
	}

	logging.Info("rendered", logging.Fields{
		"file":     renderOut,
		"notes":    len(renderNotes),
		"duration": (time.Duration(len(pcm)) * time.Second / time.Duration(sampleRate)).String(),
	})
	return f.Close()
}

// renderPartials synthesizes n samples with a short linear fade at both
// ends so note boundaries do not click
func renderPartials(partials []source.Partial, n, sampleRate int) []float64 {
	out := make([]float64, n)
	for _, p := range partials {
		step := 2 * math.Pi * p.Frequency / float64(sampleRate)
		for i := range out {
			out[i] += p.Amplitude * math.Sin(step*float64(i))
		}
	}
	fade := min(sampleRate/200, n/2)
	for i := range fade {
		g := float64(i) / float64(fade)
		out[i] *= g
		out[n-1-i] *= g
	}
	return out
}
