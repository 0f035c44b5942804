// Package rgbd defines the source-independent representation of one captured
// color+depth frame and the contracts shared by every capture source and
// output sink.
package rgbd

import (
	"context"
	"fmt"
)

// Frame is one captured color+depth frame.
//
// Color and Depth are flat row-major byte sequences. Every pixel occupies
// ColorBPP() consecutive color entries and DepthBPP() consecutive depth
// entries. A Frame is built once by NewFrame and never mutated afterwards.
type Frame struct {
	Width  int
	Height int
	Color  []byte
	Depth  []byte
}

// NewFrame validates the channel layout and returns a Frame.
//
// Both channels must be empty when the pixel count is zero. Otherwise each
// channel length must be a whole multiple of the pixel count and the color
// channel must hold whole RGB triples per pixel.
func NewFrame(width, height int, color, depth []byte) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: negative dimensions %dx%d", ErrInvalidFrame, width, height)
	}

	f := &Frame{Width: width, Height: height, Color: color, Depth: depth}

	pixels := f.Pixels()
	if pixels == 0 {
		if len(color) != 0 || len(depth) != 0 {
			return nil, fmt.Errorf("%w: %dx%d frame carries %d color and %d depth bytes",
				ErrInvalidFrame, width, height, len(color), len(depth))
		}
		return f, nil
	}

	if len(color)%pixels != 0 {
		return nil, fmt.Errorf("%w: color length %d is not a multiple of %d pixels",
			ErrInvalidFrame, len(color), pixels)
	}
	if len(depth)%pixels != 0 {
		return nil, fmt.Errorf("%w: depth length %d is not a multiple of %d pixels",
			ErrInvalidFrame, len(depth), pixels)
	}
	if bpp := len(color) / pixels; bpp%3 != 0 {
		return nil, fmt.Errorf("%w: color bpp %d is not a whole number of RGB triples",
			ErrInvalidFrame, bpp)
	}

	return f, nil
}

// Pixels returns width*height.
func (f *Frame) Pixels() int {
	return f.Width * f.Height
}

// ColorBPP returns the number of color bytes per pixel, or 0 for an empty frame.
func (f *Frame) ColorBPP() int {
	if p := f.Pixels(); p > 0 {
		return len(f.Color) / p
	}
	return 0
}

// DepthBPP returns the number of depth bytes per pixel, or 0 for an empty frame.
func (f *Frame) DepthBPP() int {
	if p := f.Pixels(); p > 0 {
		return len(f.Depth) / p
	}
	return 0
}

// String implements fmt.Stringer for log output.
func (f *Frame) String() string {
	return fmt.Sprintf("%dx%d color_bpp=%d depth_bpp=%d", f.Width, f.Height, f.ColorBPP(), f.DepthBPP())
}

// Payload is a client-facing encoding of a Frame. Every payload is
// JSON-serialisable.
type Payload = any

// Source acquires exactly one Frame from an external capture mechanism.
//
// Implementations open their connection inside Acquire and release it
// before returning, on success and on failure.
type Source interface {
	Acquire(ctx context.Context, width, height int) (*Frame, error)
}

// Sink turns a Frame into a Payload or an external side effect.
type Sink interface {
	Encode(ctx context.Context, f *Frame) (Payload, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, width, height int) (*Frame, error)

// Acquire calls fn.
func (fn SourceFunc) Acquire(ctx context.Context, width, height int) (*Frame, error) {
	return fn(ctx, width, height)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, f *Frame) (Payload, error)

// Encode calls fn.
func (fn SinkFunc) Encode(ctx context.Context, f *Frame) (Payload, error) {
	return fn(ctx, f)
}
