package engine

import "context"

// Frame is one analysis window. TimeDomain holds WindowSize samples in
// [-1,1] and SpectrumDB holds WindowSize/2 dB magnitudes.
type Frame struct {
	TimeDomain []float64
	SpectrumDB []float64
	SampleRate int
}

// FrameSource supplies the newest analysis window on demand.
type FrameSource interface {
	// Start acquires the underlying device or stream. A failure is returned
	// synchronously and leaves the source stopped.
	Start(ctx context.Context) error

	// Stop releases the source. It is safe to call Stop multiple times.
	Stop() error

	// Frame returns the most recent window without blocking. A slow producer
	// yields a repeated frame. The slices may be reused by the next call.
	Frame() Frame

	// Name identifies the source in logs and errors
	Name() string
}
