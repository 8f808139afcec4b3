// Package config loads the layered application configuration: defaults,
// then a YAML file, then SONIDO_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-tonal/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonal/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonal/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/evidence"
	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/metrics"
	"github.com/RyanBlaney/sonido-tonal/server"
	"github.com/RyanBlaney/sonido-tonal/source"
)

// EnvPrefix prefixes every environment override, e.g. SONIDO_PITCH_MIN_FREQUENCY
const EnvPrefix = "SONIDO"

// Config is the complete application configuration
type Config struct {
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	Analysis   AnalysisConfig   `mapstructure:"analysis" yaml:"analysis"`
	Pitch      PitchConfig      `mapstructure:"pitch" yaml:"pitch"`
	Stabilizer StabilizerConfig `mapstructure:"stabilizer" yaml:"stabilizer"`
	Chroma     ChromaConfig     `mapstructure:"chroma" yaml:"chroma"`
	Ledger     LedgerConfig     `mapstructure:"ledger" yaml:"ledger"`
	Key        KeyConfig        `mapstructure:"key" yaml:"key"`
	Scale      ScaleConfig      `mapstructure:"scale" yaml:"scale"`
	Source     SourceConfig     `mapstructure:"source" yaml:"source"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

type AnalysisConfig struct {
	SampleRate   int           `mapstructure:"sample_rate" yaml:"sample_rate"`
	WindowSize   int           `mapstructure:"window_size" yaml:"window_size"`
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	MinDecibels  float64       `mapstructure:"min_decibels" yaml:"min_decibels"`
	Smoothing    float64       `mapstructure:"smoothing" yaml:"smoothing"`
	Window       string        `mapstructure:"window" yaml:"window"`
}

type PitchConfig struct {
	MinFrequency          float64 `mapstructure:"min_frequency" yaml:"min_frequency"`
	MaxFrequency          float64 `mapstructure:"max_frequency" yaml:"max_frequency"`
	CMNDFThreshold        float64 `mapstructure:"cmndf_threshold" yaml:"cmndf_threshold"`
	MaxCMNDF              float64 `mapstructure:"max_cmndf" yaml:"max_cmndf"`
	Harmonics             int     `mapstructure:"harmonics" yaml:"harmonics"`
	AgreementTolerance    float64 `mapstructure:"agreement_tolerance" yaml:"agreement_tolerance"`
	OctaveGuardConfidence float64 `mapstructure:"octave_guard_confidence" yaml:"octave_guard_confidence"`
	MinFundamentalRatio   float64 `mapstructure:"min_fundamental_ratio" yaml:"min_fundamental_ratio"`
}

type StabilizerConfig struct {
	History         int           `mapstructure:"history" yaml:"history"`
	MinConfidence   float64       `mapstructure:"min_confidence" yaml:"min_confidence"`
	SilenceRMS      float64       `mapstructure:"silence_rms" yaml:"silence_rms"`
	MinNoteDuration time.Duration `mapstructure:"min_note_duration" yaml:"min_note_duration"`
}

type ChromaConfig struct {
	MinFrequency float64 `mapstructure:"min_frequency" yaml:"min_frequency"`
	MaxFrequency float64 `mapstructure:"max_frequency" yaml:"max_frequency"`
	History      int     `mapstructure:"history" yaml:"history"`
}

type LedgerConfig struct {
	Capacity    int `mapstructure:"capacity" yaml:"capacity"`
	RecentNotes int `mapstructure:"recent_notes" yaml:"recent_notes"`
}

type KeyConfig struct {
	MinHistory             int           `mapstructure:"min_history" yaml:"min_history"`
	SilenceStd             float64       `mapstructure:"silence_std" yaml:"silence_std"`
	CorrelationFloor       float64       `mapstructure:"correlation_floor" yaml:"correlation_floor"`
	PriorFloor             float64       `mapstructure:"prior_floor" yaml:"prior_floor"`
	PriorWeight            float64       `mapstructure:"prior_weight" yaml:"prior_weight"`
	PriorWindow            time.Duration `mapstructure:"prior_window" yaml:"prior_window"`
	PriorHalfLife          time.Duration `mapstructure:"prior_half_life" yaml:"prior_half_life"`
	PriorDurationCap       time.Duration `mapstructure:"prior_duration_cap" yaml:"prior_duration_cap"`
	PriorMinShare          float64       `mapstructure:"prior_min_share" yaml:"prior_min_share"`
	TonicBoost             float64       `mapstructure:"tonic_boost" yaml:"tonic_boost"`
	HistogramMinConfidence float64       `mapstructure:"histogram_min_confidence" yaml:"histogram_min_confidence"`
}

type ScaleConfig struct {
	MinDistinct            int     `mapstructure:"min_distinct" yaml:"min_distinct"`
	MinConfidence          float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinMatched             int     `mapstructure:"min_matched" yaml:"min_matched"`
	MaxCandidates          int     `mapstructure:"max_candidates" yaml:"max_candidates"`
	SizePenaltyCardinality int     `mapstructure:"size_penalty_cardinality" yaml:"size_penalty_cardinality"`
}

// SourceConfig selects the capture device and file playback behaviour
type SourceConfig struct {
	Device string `mapstructure:"device" yaml:"device"`
	Loop   bool   `mapstructure:"loop" yaml:"loop"`

	DCCutoff float64 `mapstructure:"dc_cutoff" yaml:"dc_cutoff"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	Path       string `mapstructure:"path" yaml:"path"`
}

type MetricsConfig struct {
	StatsdAddr string   `mapstructure:"statsd_addr" yaml:"statsd_addr"`
	Namespace  string   `mapstructure:"namespace" yaml:"namespace"`
	Tags       []string `mapstructure:"tags" yaml:"tags"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	eng := engine.DefaultConfig()
	analyser := source.DefaultParams()

	v.SetDefault("log_level", "info")
	v.SetDefault("output_format", "json")

	v.SetDefault("analysis.sample_rate", eng.SampleRate)
	v.SetDefault("analysis.window_size", eng.WindowSize)
	v.SetDefault("analysis.tick_interval", eng.TickInterval)
	v.SetDefault("analysis.min_decibels", analyser.MinDecibel)
	v.SetDefault("analysis.smoothing", analyser.Smoothing)
	v.SetDefault("analysis.window", analyser.Window)

	v.SetDefault("pitch.min_frequency", eng.Pitch.MinFreq)
	v.SetDefault("pitch.max_frequency", eng.Pitch.MaxFreq)
	v.SetDefault("pitch.cmndf_threshold", eng.Pitch.CMNDFThreshold)
	v.SetDefault("pitch.max_cmndf", eng.Pitch.MaxCMNDF)
	v.SetDefault("pitch.harmonics", eng.Pitch.MaxHarmonics)
	v.SetDefault("pitch.agreement_tolerance", eng.Pitch.AgreementTolerance)
	v.SetDefault("pitch.octave_guard_confidence", eng.Pitch.OctaveGuardConfidence)
	v.SetDefault("pitch.min_fundamental_ratio", eng.Pitch.MinFundamentalRatio)

	v.SetDefault("stabilizer.history", eng.Stabilizer.HistorySize)
	v.SetDefault("stabilizer.min_confidence", eng.Stabilizer.MinConfidence)
	v.SetDefault("stabilizer.silence_rms", eng.Stabilizer.SilenceRMS)
	v.SetDefault("stabilizer.min_note_duration", eng.Stabilizer.MinNoteDuration)

	v.SetDefault("chroma.min_frequency", eng.Chroma.MinFreq)
	v.SetDefault("chroma.max_frequency", eng.Chroma.MaxFreq)
	v.SetDefault("chroma.history", eng.ChromaHistory)

	v.SetDefault("ledger.capacity", eng.Ledger.Capacity)
	v.SetDefault("ledger.recent_notes", eng.RecentNotes)

	v.SetDefault("key.min_history", eng.Key.MinHistory)
	v.SetDefault("key.silence_std", eng.Key.SilenceStd)
	v.SetDefault("key.correlation_floor", eng.Key.CorrelationFloor)
	v.SetDefault("key.prior_floor", eng.Key.PriorFloor)
	v.SetDefault("key.prior_weight", eng.Key.PriorWeight)
	v.SetDefault("key.prior_window", eng.Prior.Window)
	v.SetDefault("key.prior_half_life", eng.Prior.HalfLife)
	v.SetDefault("key.prior_duration_cap", eng.Prior.DurationCap)
	v.SetDefault("key.prior_min_share", eng.Prior.MinShare)
	v.SetDefault("key.tonic_boost", eng.Key.TonicBoost)
	v.SetDefault("key.histogram_min_confidence", eng.HistogramMinConfidence)

	v.SetDefault("scale.min_distinct", eng.Scale.MinDistinct)
	v.SetDefault("scale.min_confidence", eng.Scale.MinConfidence)
	v.SetDefault("scale.min_matched", eng.Scale.MinMatched)
	v.SetDefault("scale.max_candidates", eng.Scale.MaxCandidates)
	v.SetDefault("scale.size_penalty_cardinality", eng.Scale.SizePenaltyCardinality)

	v.SetDefault("source.device", "")
	v.SetDefault("source.loop", false)
	v.SetDefault("source.dc_cutoff", analyser.DCCutoff)

	srv := server.DefaultConfig()
	v.SetDefault("server.listen_addr", srv.ListenAddr)
	v.SetDefault("server.path", srv.Path)

	v.SetDefault("metrics.statsd_addr", "")
	v.SetDefault("metrics.namespace", "sonido.")
	v.SetDefault("metrics.tags", []string{})
}

// NewViper returns a viper instance with defaults and environment binding.
// configFile, when set, is read; otherwise the standard search paths are
// tried and a missing file is not an error.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
		return v, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "sonido"))
	}
	v.AddConfigPath("/etc/sonido")
	v.AddConfigPath(".")
	v.SetConfigName("sonido")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field values that viper cannot
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.OutputFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("config: unsupported output format %q (json, yaml)", c.OutputFormat)
	}
	if c.Analysis.MinDecibels >= 0 {
		return fmt.Errorf("config: min_decibels must be negative, got %.1f", c.Analysis.MinDecibels)
	}
	if c.Analysis.Smoothing < 0 || c.Analysis.Smoothing >= 1 {
		return fmt.Errorf("config: smoothing must be in [0,1), got %.2f", c.Analysis.Smoothing)
	}
	if _, err := windowing.ParseType(c.Analysis.Window); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Source.DCCutoff < 0 || c.Source.DCCutoff >= float64(c.Analysis.SampleRate)/2 {
		return fmt.Errorf("config: dc_cutoff must be in [0, %d), got %.1f", c.Analysis.SampleRate/2, c.Source.DCCutoff)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("config: server path must start with /, got %q", c.Server.Path)
	}
	if err := c.ToEngineConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ToEngineConfig maps the configuration onto the analysis pipeline
func (c *Config) ToEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.SampleRate = c.Analysis.SampleRate
	cfg.WindowSize = c.Analysis.WindowSize
	cfg.TickInterval = c.Analysis.TickInterval

	cfg.Pitch = tonal.PitchDetectionParams{
		SampleRate:            c.Analysis.SampleRate,
		MinFreq:               c.Pitch.MinFrequency,
		MaxFreq:               c.Pitch.MaxFrequency,
		CMNDFThreshold:        c.Pitch.CMNDFThreshold,
		MaxCMNDF:              c.Pitch.MaxCMNDF,
		MaxHarmonics:          c.Pitch.Harmonics,
		MinFundamentalRatio:   c.Pitch.MinFundamentalRatio,
		AgreementTolerance:    c.Pitch.AgreementTolerance,
		OctaveGuardConfidence: c.Pitch.OctaveGuardConfidence,
	}
	cfg.Stabilizer = tonal.StabilizerParams{
		HistorySize:     c.Stabilizer.History,
		MinConfidence:   c.Stabilizer.MinConfidence,
		SilenceRMS:      c.Stabilizer.SilenceRMS,
		MinNoteDuration: c.Stabilizer.MinNoteDuration,
	}
	cfg.Chroma = chroma.ExtractorParams{
		MinFreq: c.Chroma.MinFrequency,
		MaxFreq: c.Chroma.MaxFrequency,
	}
	cfg.ChromaHistory = c.Chroma.History
	cfg.Ledger = evidence.LedgerParams{
		Capacity:    c.Ledger.Capacity,
		MinDuration: c.Stabilizer.MinNoteDuration,
	}
	cfg.RecentNotes = c.Ledger.RecentNotes
	cfg.Key = tonal.KeyEstimationParams{
		MinHistory:       c.Key.MinHistory,
		SilenceStd:       c.Key.SilenceStd,
		CorrelationFloor: c.Key.CorrelationFloor,
		PriorFloor:       c.Key.PriorFloor,
		PriorWeight:      c.Key.PriorWeight,
		TonicBoost:       c.Key.TonicBoost,
	}
	cfg.Prior = evidence.PriorParams{
		Window:      c.Key.PriorWindow,
		HalfLife:    c.Key.PriorHalfLife,
		DurationCap: c.Key.PriorDurationCap,
		MinShare:    c.Key.PriorMinShare,
	}
	cfg.HistogramMinConfidence = c.Key.HistogramMinConfidence
	cfg.Scale = tonal.ScaleParams{
		MinDistinct:            c.Scale.MinDistinct,
		MinConfidence:          c.Scale.MinConfidence,
		MinMatched:             c.Scale.MinMatched,
		MaxCandidates:          c.Scale.MaxCandidates,
		SizePenaltyCardinality: c.Scale.SizePenaltyCardinality,
	}
	return cfg
}

// SourceParams returns the frame shaping shared by every source
func (c *Config) SourceParams() source.Params {
	return source.Params{
		SampleRate: c.Analysis.SampleRate,
		WindowSize: c.Analysis.WindowSize,
		MinDecibel: c.Analysis.MinDecibels,
		Smoothing:  c.Analysis.Smoothing,
		Window:     c.Analysis.Window,
		DCCutoff:   c.Source.DCCutoff,
	}
}

// ServerSettings returns the HTTP listener settings
func (c *Config) ServerSettings() server.Config {
	return server.Config{ListenAddr: c.Server.ListenAddr, Path: c.Server.Path}
}

// MetricsSettings returns the statsd settings
func (c *Config) MetricsSettings() metrics.Config {
	return metrics.Config{Addr: c.Metrics.StatsdAddr, Namespace: c.Metrics.Namespace, Tags: c.Metrics.Tags}
}

// WriteYAML writes the effective configuration as YAML
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return enc.Close()
}
