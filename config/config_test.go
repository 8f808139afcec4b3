package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-tonal/engine"
)

func defaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaultsMatchEngine(t *testing.T) {
	cfg, err := Load(defaultViper())
	require.NoError(t, err)

	assert.Equal(t, engine.DefaultConfig(), cfg.ToEngineConfig())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, ":8080", cfg.ServerSettings().ListenAddr)
	assert.Equal(t, "/ws", cfg.ServerSettings().Path)
	assert.Empty(t, cfg.MetricsSettings().Addr)

	p := cfg.SourceParams()
	assert.Equal(t, 44100, p.SampleRate)
	assert.Equal(t, 8192, p.WindowSize)
	assert.Equal(t, -100.0, p.MinDecibel)
	assert.Equal(t, 0.6, p.Smoothing)
	assert.Equal(t, "hann", p.Window)
	assert.Equal(t, 10.0, p.DCCutoff)
}

func TestConfigFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonido.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
analysis:
  tick_interval: 100ms
key:
  prior_weight: 0.3
scale:
  max_candidates: 3
`), 0o644))
	t.Setenv("SONIDO_PITCH_MIN_FREQUENCY", "80")
	t.Setenv("SONIDO_OUTPUT_FORMAT", "yaml")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	ec := cfg.ToEngineConfig()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "yaml", cfg.OutputFormat)
	assert.Equal(t, 100*time.Millisecond, ec.TickInterval)
	assert.Equal(t, 0.3, ec.Key.PriorWeight)
	assert.Equal(t, 3, ec.Scale.MaxCandidates)
	assert.Equal(t, 80.0, ec.Pitch.MinFreq)
	assert.Equal(t, 2000.0, ec.Pitch.MaxFreq)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{"log level", "log_level", "loud"},
		{"output format", "output_format", "xml"},
		{"positive floor", "analysis.min_decibels", 3},
		{"smoothing", "analysis.smoothing", 1.0},
		{"server path", "server.path", "ws"},
		{"odd window", "analysis.window_size", 1001},
		{"window shape", "analysis.window", "kaiser"},
		{"dc cutoff", "source.dc_cutoff", 30000.0},
		{"pitch range", "pitch.max_frequency", 10},
		{"ledger", "ledger.capacity", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := defaultViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestWriteYAML(t *testing.T) {
	cfg, err := Load(defaultViper())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	analysis := decoded["analysis"].(map[string]any)
	assert.Equal(t, "50ms", analysis["tick_interval"])
	assert.Equal(t, 8192, analysis["window_size"])

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(&buf))
	roundTrip, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, cfg, roundTrip)
}
