//go:build cgo

package source

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/RyanBlaney/sonido-tonal/algorithms/filters"
	"github.com/RyanBlaney/sonido-tonal/engine"
	"github.com/RyanBlaney/sonido-tonal/logging"
)

// CaptureAvailable reports whether this build can open capture devices
const CaptureAvailable = true

// Capture records mono float audio from an input device through miniaudio
type Capture struct {
	params Params
	device string // case-insensitive substring of the device name; empty selects the default
	logger logging.Logger

	window  *SampleWindow
	builder *frameBuilder
	dc      *filters.DCBlocker // nil when disabled; only touched by the device callback

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	dev     *malgo.Device
	running bool
}

// NewCapture creates a capture source. device selects an input by name
// substring; empty uses the system default.
func NewCapture(params Params, device string, logger logging.Logger) *Capture {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Capture{
		params:  params,
		device:  device,
		logger:  logger.WithFields(logging.Fields{"component": "source", "source": "capture"}),
		window:  NewSampleWindow(params.WindowSize),
		builder: newFrameBuilder(params),
		dc:      newDCBlocker(params),
	}
}

func newDCBlocker(params Params) *filters.DCBlocker {
	if params.DCCutoff <= 0 {
		return nil
	}
	return filters.NewDCBlocker(params.SampleRate, params.DCCutoff)
}

// ListDevices returns the names of the available capture devices
func ListDevices() ([]string, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

func (c *Capture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		c.logger.Debug("miniaudio", logging.Fields{"message": strings.TrimSpace(message)})
	})
	if err != nil {
		return fmt.Errorf("audio context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(c.params.SampleRate)
	cfg.Alsa.NoMMap = 1

	if c.device != "" {
		info, err := findDevice(mctx, c.device)
		if err != nil {
			c.release(mctx, nil)
			return err
		}
		cfg.Capture.DeviceID = info.ID.Pointer()
	}

	c.window.Reset()
	c.builder.reset()
	if c.dc != nil {
		c.dc.Reset()
	}

	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			samples := bytesToFloat32(input)
			if c.dc != nil {
				c.dc.ProcessFloat32(samples)
			}
			c.window.Write(samples)
		},
	})
	if err != nil {
		c.release(mctx, nil)
		return fmt.Errorf("init capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		c.release(mctx, dev)
		return fmt.Errorf("start capture device: %w", err)
	}

	c.ctx = mctx
	c.dev = dev
	c.running = true
	c.logger.Info("capture started", logging.Fields{
		"sample_rate": c.params.SampleRate,
		"device":      c.device,
	})
	return nil
}

func findDevice(mctx *malgo.AllocatedContext, name string) (*malgo.DeviceInfo, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return &infos[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matches %q", name)
}

func (c *Capture) release(mctx *malgo.AllocatedContext, dev *malgo.Device) error {
	var errs []error
	if dev != nil {
		if err := dev.Stop(); err != nil {
			errs = append(errs, err)
		}
		dev.Uninit()
	}
	if mctx != nil {
		if err := mctx.Uninit(); err != nil {
			errs = append(errs, err)
		}
		mctx.Free()
	}
	return errors.Join(errs...)
}

func (c *Capture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	err := c.release(c.ctx, c.dev)
	c.ctx, c.dev = nil, nil
	c.logger.Info("capture stopped")
	return err
}

func (c *Capture) Frame() engine.Frame {
	return c.builder.build(c.window.CopyTo)
}

func (c *Capture) Name() string {
	if c.device != "" {
		return "capture:" + c.device
	}
	return "capture"
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
