package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonal/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonal/evidence"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

var (
	scalesNotes    []string
	scalesRoot     string
	scalesTemplate string
)

var scalesCmd = &cobra.Command{
	Use:   "scales",
	Short: "List scale templates or rank scales for a set of notes",
	Long: `Without flags, lists the scale template catalog.

  --template NAME --root PC   prints the pitch classes of one scale
  --notes C,E,G,A             ranks the scales that fit the given notes,
                              optionally constrained with --root`,
	RunE: runScales,
}

func init() {
	rootCmd.AddCommand(scalesCmd)

	scalesCmd.Flags().StringSliceVar(&scalesNotes, "notes", nil, "observed pitch classes, repeated to weight them")
	scalesCmd.Flags().StringVar(&scalesRoot, "root", "", "constrain or transpose to this root")
	scalesCmd.Flags().StringVar(&scalesTemplate, "template", "", "template name to spell out")
	scalesCmd.Flags().Int("max-scales", 5, "maximum ranked scales")
}

type templateEntry struct {
	ID           theory.ScaleID `json:"id"`
	Name         string         `json:"name"`
	Intervals    []int          `json:"intervals"`
	PitchClasses []string       `json:"pitch_classes,omitempty"`
}

func runScales(cmd *cobra.Command, args []string) error {
	catalog := theory.DefaultCatalog()
	out := snapshotWriter{w: cmd.OutOrStdout(), format: cfg.OutputFormat}

	var root *theory.PitchClass
	if scalesRoot != "" {
		pc, err := theory.ParsePitchClass(scalesRoot)
		if err != nil {
			return err
		}
		root = &pc
	}

	switch {
	case len(scalesNotes) > 0:
		summary, err := summarizeNotes(scalesNotes)
		if err != nil {
			return err
		}
		interp := tonal.NewScaleInterpolator(catalog, cfg.ToEngineConfig().Scale)
		if root != nil {
			return out.write(interp.InterpolateRoot(summary, *root))
		}
		return out.write(interp.Interpolate(summary))

	case scalesTemplate != "":
		tmpl, ok := catalog.Lookup(scalesTemplate)
		if !ok {
			return fmt.Errorf("unknown scale template %q", scalesTemplate)
		}
		r := theory.C
		if root != nil {
			r = *root
		}
		return out.write(newTemplateEntry(tmpl, &r))

	default:
		entries := make([]templateEntry, 0, catalog.Len())
		for _, tmpl := range catalog.Templates() {
			entries = append(entries, newTemplateEntry(tmpl, root))
		}
		return out.write(entries)
	}
}

func newTemplateEntry(tmpl theory.ScaleTemplate, root *theory.PitchClass) templateEntry {
	e := templateEntry{ID: tmpl.ID, Name: tmpl.Name, Intervals: tmpl.Intervals}
	if root != nil {
		for _, interval := range tmpl.Intervals {
			e.PitchClasses = append(e.PitchClasses, root.Transpose(interval).String())
		}
	}
	return e
}

// summarizeNotes turns note names into evidence of equal duration and full
// confidence, one event per occurrence
func summarizeNotes(names []string) (evidence.Summary, error) {
	start := time.Unix(0, 0)
	events := make([]evidence.NoteEvent, 0, len(names))
	for i, name := range names {
		pc, err := theory.ParsePitchClass(strings.TrimSpace(name))
		if err != nil {
			return evidence.Summary{}, err
		}
		events = append(events, evidence.NoteEvent{
			PitchClass: pc,
			Timestamp:  start.Add(time.Duration(i) * 500 * time.Millisecond),
			Duration:   500 * time.Millisecond,
			Confidence: 1,
		})
	}
	return evidence.Summarize(events), nil
}
