package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/mjibson/go-dsp/wav"

	"github.com/RyanBlaney/sonido-tonal/algorithms/filters"
	"github.com/RyanBlaney/sonido-tonal/logging"
)

// readChunk is the number of interleaved samples read per WAV read call
const readChunk = 16384

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // mono samples in [-1,1]
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channel count of the source before downmix
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source,omitempty"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate" mapstructure:"target_sample_rate"` // 0 keeps the file rate
	MaxDuration      time.Duration `json:"max_duration" mapstructure:"max_duration"`             // 0 decodes everything
	// Normalization scales the decoded signal so its peak reaches TargetPeak (dBFS)
	EnableNormalization bool    `json:"enable_normalization" mapstructure:"enable_normalization"`
	TargetPeak          float64 `json:"target_peak" mapstructure:"target_peak"`
	// DCCutoff high-passes the mono signal before resampling; 0 disables it
	DCCutoff float64 `json:"dc_cutoff" mapstructure:"dc_cutoff"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate:    44100,
		MaxDuration:         0, // No limit
		EnableNormalization: false,
		TargetPeak:          -1.0,
	}
}

// Decoder decodes PCM WAV audio into mono float samples
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes a WAV file
func (d *Decoder) DecodeFile(filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  filename,
	})

	f, err := os.Open(filename)
	if err != nil {
		logger.Error(err, "Failed to open audio file")
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	data, err := d.decode(f, logger)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	data.Source = filename
	return data, nil
}

// DecodeReader decodes WAV audio from an io.Reader
func (d *Decoder) DecodeReader(reader io.Reader) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeReader",
	})
	return d.decode(reader, logger)
}

func (d *Decoder) decode(r io.Reader, logger logging.Logger) (*AudioData, error) {
	w, err := wav.New(r)
	if err != nil {
		logger.Error(err, "Failed to parse WAV header")
		return nil, fmt.Errorf("wav header: %w", err)
	}

	channels := int(w.NumChannels)
	sampleRate := int(w.SampleRate)
	if channels < 1 || sampleRate < 1 {
		return nil, fmt.Errorf("wav header: %d channels at %d Hz", channels, sampleRate)
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": sampleRate,
		"input_channels":    channels,
		"bits_per_sample":   w.BitsPerSample,
		"input_duration":    w.Duration.Seconds(),
	})

	// w.Samples counts interleaved samples across all channels
	limit := w.Samples
	if d.config.MaxDuration > 0 {
		limit = min(limit, int(d.config.MaxDuration.Seconds()*float64(sampleRate))*channels)
	}

	interleaved := make([]float64, 0, max(limit, 0))
	for len(interleaved) < limit {
		n := min(readChunk, limit-len(interleaved))
		raw, err := w.ReadSamples(n)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			logger.Error(err, "Failed to read WAV samples")
			return nil, fmt.Errorf("wav samples: %w", err)
		}
		before := len(interleaved)
		interleaved, err = appendSamples(interleaved, raw)
		if err != nil {
			return nil, err
		}
		if len(interleaved) == before {
			break
		}
	}

	pcm := Downmix(interleaved, channels)
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}
	if d.config.DCCutoff > 0 {
		filters.NewDCBlocker(sampleRate, d.config.DCCutoff).ProcessInPlace(pcm)
	}

	outRate := sampleRate
	if d.config.TargetSampleRate > 0 && d.config.TargetSampleRate != sampleRate {
		pcm = Resample(pcm, sampleRate, d.config.TargetSampleRate)
		outRate = d.config.TargetSampleRate
	}

	if d.config.EnableNormalization {
		NormalizePeak(pcm, d.config.TargetPeak)
	}

	duration := time.Duration(len(pcm)) * time.Second / time.Duration(outRate)
	logger.Debug("Decode completed", logging.Fields{
		"samples":     len(pcm),
		"sample_rate": outRate,
		"duration":    duration.Seconds(),
	})

	return &AudioData{
		PCM:        pcm,
		SampleRate: outRate,
		Channels:   channels,
		Duration:   duration,
	}, nil
}

// GetConfig returns decoder configuration information
func (d *Decoder) GetConfig() map[string]any {
	return map[string]any{
		"target_sample_rate":   d.config.TargetSampleRate,
		"max_duration":         d.config.MaxDuration,
		"enable_normalization": d.config.EnableNormalization,
		"target_peak":          d.config.TargetPeak,
		"dc_cutoff":            d.config.DCCutoff,
	}
}

// appendSamples converts one block of raw WAV samples to floats in [-1,1]
func appendSamples(dst []float64, raw any) ([]float64, error) {
	switch samples := raw.(type) {
	case []uint8:
		for _, v := range samples {
			dst = append(dst, (float64(v)-128)/128)
		}
	case []int16:
		for _, v := range samples {
			dst = append(dst, float64(v)/32768)
		}
	case []float32:
		for _, v := range samples {
			dst = append(dst, float64(v))
		}
	default:
		return dst, fmt.Errorf("unsupported WAV sample type %T", raw)
	}
	return dst, nil
}

// Downmix averages interleaved frames into mono
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	mono := make([]float64, len(interleaved)/channels)
	for i := range mono {
		var sum float64
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}

// NormalizePeak scales samples in place so the absolute peak sits at peakDB dBFS.
// Silent input is left unchanged.
func NormalizePeak(samples []float64, peakDB float64) {
	var peak float64
	for _, s := range samples {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak == 0 {
		return
	}
	gain := math.Pow(10, peakDB/20) / peak
	for i := range samples {
		samples[i] *= gain
	}
}
