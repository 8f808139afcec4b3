package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/metrics"
	"github.com/RyanBlaney/sonido-tonal/source"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// sourceFlags selects the frame source shared by listen and serve
type sourceFlags struct {
	wav     string
	capture bool
	synth   string
	device  string
	loop    bool
}

var errNoSourceFlag = errors.New("choose a source with --wav, --capture or --synth")

func (f *sourceFlags) build() (engine.FrameSource, error) {
	params := cfg.SourceParams()
	logger := logging.GetGlobalLogger()

	chosen := 0
	for _, set := range []bool{f.wav != "", f.capture, f.synth != ""} {
		if set {
			chosen++
		}
	}
	switch {
	case chosen == 0:
		return nil, errNoSourceFlag
	case chosen > 1:
		return nil, errors.New("--wav, --capture and --synth are mutually exclusive")
	}

	switch {
	case f.wav != "":
		return source.OpenFile(f.wav, params,
			source.WithLoop(cfg.Source.Loop),
			source.WithFileLogger(logger))
	case f.capture:
		return source.NewCapture(params, cfg.Source.Device, logger), nil
	default:
		freq, err := parseFrequency(f.synth)
		if err != nil {
			return nil, err
		}
		return source.NewSynth(params,
			source.WithSynthLogger(logger),
			source.WithPartials(source.HarmonicTone(freq, 0.5, 0.25, 0.12)...)), nil
	}
}

// parseFrequency accepts a frequency in Hz ("440") or a note name ("A4", "F#3")
func parseFrequency(s string) (float64, error) {
	if hz, err := strconv.ParseFloat(s, 64); err == nil {
		if hz <= 0 {
			return 0, fmt.Errorf("frequency must be positive, got %s", s)
		}
		return hz, nil
	}

	split := strings.IndexFunc(s, func(r rune) bool { return unicode.IsDigit(r) || r == '-' })
	if split <= 0 {
		return 0, fmt.Errorf("invalid note %q (want e.g. A4 or 440)", s)
	}
	pc, err := theory.ParsePitchClass(s[:split])
	if err != nil {
		return 0, err
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q: %w", s, err)
	}
	return theory.NoteFrequency(pc, octave), nil
}

// newEngine builds an engine over src with metrics from the configuration.
// The returned close func releases the metrics client.
func newEngine(src engine.FrameSource) (*engine.Engine, func(), error) {
	logger := logging.GetGlobalLogger()
	recorder, err := metrics.New(cfg.MetricsSettings(), logger)
	if err != nil {
		return nil, nil, err
	}
	e, err := engine.New(src, cfg.ToEngineConfig(),
		engine.WithLogger(logger),
		engine.WithMetrics(recorder))
	if err != nil {
		recorder.Close()
		return nil, nil, err
	}
	return e, func() { recorder.Close() }, nil
}

// snapshotWriter prints snapshots as JSON lines or YAML documents
type snapshotWriter struct {
	w      io.Writer
	format string
}

func (s snapshotWriter) write(v any) error {
	switch s.format {
	case "yaml":
		// json tags carry the field names, so encode through JSON first
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		out, err := yaml.Marshal(generic)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(s.w, "---\n%s", out)
		return err
	default:
		enc := json.NewEncoder(s.w)
		return enc.Encode(v)
	}
}
