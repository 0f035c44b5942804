// Package realsense acquires aligned color and depth frames from an Intel
// RealSense USB camera.
//
// The librealsense2 binding is only compiled with the "realsense" build
// tag. Without it every acquisition fails with rgbd.ErrSourceUnavailable.
package realsense

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

const (
	colorBPP = 3 // RGB8
	depthBPP = 2 // Z16
)

// Config holds the pipeline settings.
type Config struct {
	// WarmupFrames are read and discarded so auto-exposure can settle.
	WarmupFrames int

	// FPS requested for both streams.
	FPS int

	// Timeout bounds the wait for each frameset.
	Timeout time.Duration
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() Config {
	return Config{
		WarmupFrames: 100,
		FPS:          30,
		Timeout:      5 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.WarmupFrames < 0 {
		return fmt.Errorf("realsense: warmup frames must be >= 0")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("realsense: fps must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("realsense: timeout must be positive")
	}
	return nil
}

// rawFrame is one video frame as delivered by the device. Rows may be
// padded past Width*bpp up to Stride bytes.
type rawFrame struct {
	Width  int
	Height int
	Stride int
	Data   []byte
}

// pipeline is the subset of the librealsense2 pipeline the adapter drives.
// Stop must be safe to call whether or not Start succeeded.
type pipeline interface {
	Start(width, height, fps int) error
	WaitForFrames(timeout time.Duration) (color, depth rawFrame, err error)
	Stop() error
}

// errNotCompiled is returned by the stub pipeline.
var errNotCompiled = errors.New("built without librealsense2 support (use -tags realsense)")

// Adapter is an rgbd.Source backed by a RealSense pipeline. Each Acquire
// opens and stops its own pipeline.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
	open   func() (pipeline, error)
}

// New creates a RealSense adapter.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		cfg:    cfg,
		logger: logger.With("component", "realsense"),
		open:   openPipeline,
	}, nil
}

// Acquire implements rgbd.Source.
func (a *Adapter) Acquire(ctx context.Context, width, height int) (f *rgbd.Frame, err error) {
	p, err := a.open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	defer rgbd.Release(&err, "realsense pipeline", p.Stop)

	if err := p.Start(width, height, a.cfg.FPS); err != nil {
		return nil, fmt.Errorf("%w: start pipeline: %v", rgbd.ErrSourceUnavailable, err)
	}

	a.logger.Debug("pipeline started",
		"width", width,
		"height", height,
		"fps", a.cfg.FPS,
		"warmup", a.cfg.WarmupFrames,
	)

	for i := 0; i < a.cfg.WarmupFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, _, err := p.WaitForFrames(a.cfg.Timeout); err != nil {
			return nil, fmt.Errorf("warmup frame %d: %w", i, waitError(err))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	color, depth, err := p.WaitForFrames(a.cfg.Timeout)
	if err != nil {
		return nil, waitError(err)
	}

	return toFrame(color, depth)
}

// waitError marks device failures while waiting for frames as an
// unavailable source. Timeouts and malformed framesets keep their kind.
func waitError(err error) error {
	if errors.Is(err, rgbd.ErrAcquisitionTimeout) || errors.Is(err, rgbd.ErrProtocolMismatch) {
		return err
	}
	return fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
}

// toFrame packs the device frames into a Frame: color rows are un-strided
// and depth samples are rewritten little-endian.
func toFrame(color, depth rawFrame) (*rgbd.Frame, error) {
	if color.Width != depth.Width || color.Height != depth.Height {
		return nil, fmt.Errorf("%w: color %dx%d, depth %dx%d", rgbd.ErrProtocolMismatch,
			color.Width, color.Height, depth.Width, depth.Height)
	}

	rgb, err := rgbd.Unstride(color.Data, color.Height, color.Width*colorBPP, color.Stride)
	if err != nil {
		return nil, fmt.Errorf("color: %w", err)
	}
	z16, err := rgbd.Unstride(depth.Data, depth.Height, depth.Width*depthBPP, depth.Stride)
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}

	return rgbd.NewFrame(color.Width, color.Height, rgb, nativeToLittleEndian(z16))
}

func nativeToLittleEndian(z16 []byte) []byte {
	out := make([]byte, len(z16))
	for i := 0; i+1 < len(z16); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], binary.NativeEndian.Uint16(z16[i:]))
	}
	return out
}
