//go:build !cgo

package source

import (
	"context"
	"errors"

	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
)

// CaptureAvailable reports whether this build can open capture devices
const CaptureAvailable = false

// ErrCaptureUnavailable is returned when the binary was built without cgo
var ErrCaptureUnavailable = errors.New("audio capture requires a cgo build")

// Capture is unavailable without cgo; Start always fails
type Capture struct {
	params  Params
	device  string
	builder *frameBuilder
}

// NewCapture creates a capture source that cannot be started
func NewCapture(params Params, device string, logger logging.Logger) *Capture {
	return &Capture{params: params, device: device, builder: newFrameBuilder(params)}
}

// ListDevices always fails without cgo
func ListDevices() ([]string, error) {
	return nil, ErrCaptureUnavailable
}

func (c *Capture) Start(ctx context.Context) error {
	return ErrCaptureUnavailable
}

func (c *Capture) Stop() error {
	return nil
}

func (c *Capture) Frame() engine.Frame {
	return c.builder.build(func(dst []float64) { clear(dst) })
}

func (c *Capture) Name() string {
	return "capture"
}
