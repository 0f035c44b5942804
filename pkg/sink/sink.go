// Package sink encodes frames into client-facing payloads.
//
// Three encodings are provided:
//   - Split: color and depth as separate buffers ("rgb+d")
//   - Interleaved: one buffer alternating color and depth per pixel ("rgbd")
//   - PNG: color only, as a lossless compressed image ("png")
//
// Publishing onto the messaging bus lives in package rosbridge.
package sink

import (
	"context"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// SplitPayload carries color and depth as separate buffers.
type SplitPayload struct {
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	Color       rgbd.Bytes `json:"color"`
	ColorLength int        `json:"color_length"`
	ColorBPP    int        `json:"color_bpp"`
	Depth       rgbd.Bytes `json:"depth"`
	DepthLength int        `json:"depth_length"`
	DepthBPP    int        `json:"depth_bpp"`
}

// InterleavedPayload carries color and depth in one buffer, pixel by pixel.
type InterleavedPayload struct {
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	RGBD       rgbd.Bytes `json:"rgbd"`
	RGBDLength int        `json:"rgbd_length"`
	ColorBPP   int        `json:"color_bpp"`
	DepthBPP   int        `json:"depth_bpp"`
}

// Split passes the frame through unchanged.
type Split struct{}

// Encode implements rgbd.Sink.
func (Split) Encode(_ context.Context, f *rgbd.Frame) (rgbd.Payload, error) {
	return &SplitPayload{
		Width:       f.Width,
		Height:      f.Height,
		Color:       rgbd.Bytes(f.Color),
		ColorLength: len(f.Color),
		ColorBPP:    f.ColorBPP(),
		Depth:       rgbd.Bytes(f.Depth),
		DepthLength: len(f.Depth),
		DepthBPP:    f.DepthBPP(),
	}, nil
}

// Interleaved writes ColorBPP color bytes followed by DepthBPP depth bytes
// for each pixel until either channel runs out.
type Interleaved struct{}

// Encode implements rgbd.Sink.
func (Interleaved) Encode(_ context.Context, f *rgbd.Frame) (rgbd.Payload, error) {
	cbpp, dbpp := f.ColorBPP(), f.DepthBPP()
	buf := interleave(f.Color, f.Depth, cbpp, dbpp)
	return &InterleavedPayload{
		Width:      f.Width,
		Height:     f.Height,
		RGBD:       buf,
		RGBDLength: len(buf),
		ColorBPP:   cbpp,
		DepthBPP:   dbpp,
	}, nil
}

// pixelsInLockstep counts pixels walked before either channel is exhausted.
func pixelsInLockstep(colorLen, depthLen, cbpp, dbpp int) int {
	if colorLen == 0 || depthLen == 0 || cbpp == 0 || dbpp == 0 {
		return 0
	}
	return min(colorLen/cbpp, depthLen/dbpp)
}

func interleave(color, depth []byte, cbpp, dbpp int) rgbd.Bytes {
	pixels := pixelsInLockstep(len(color), len(depth), cbpp, dbpp)
	out := make(rgbd.Bytes, 0, pixels*(cbpp+dbpp))
	for p := 0; p < pixels; p++ {
		out = append(out, color[p*cbpp:p*cbpp+cbpp]...)
		out = append(out, depth[p*dbpp:p*dbpp+dbpp]...)
	}
	return out
}

// Deinterleave splits an interleaved buffer back into its color and depth
// channels using the reported bytes-per-pixel values.
func Deinterleave(buf []byte, cbpp, dbpp int) (color, depth []byte, err error) {
	stride := cbpp + dbpp
	if stride == 0 {
		return nil, nil, nil
	}
	if len(buf)%stride != 0 {
		return nil, nil, rgbd.ErrProtocolMismatch
	}
	pixels := len(buf) / stride
	color = make([]byte, 0, pixels*cbpp)
	depth = make([]byte, 0, pixels*dbpp)
	for p := 0; p < pixels; p++ {
		px := buf[p*stride : (p+1)*stride]
		color = append(color, px[:cbpp]...)
		depth = append(depth, px[cbpp:]...)
	}
	return color, depth, nil
}
