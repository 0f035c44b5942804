package sink

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// PNGPayload carries a PNG-encoded color image. Depth is not included.
type PNGPayload struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	PNG       rgbd.Bytes `json:"png"`
	PNGLength int        `json:"png_length"`
}

// PNG encodes the color channel as an 8-bit RGB PNG image.
type PNG struct {
	// CompressionLevel defaults to png.DefaultCompression.
	CompressionLevel png.CompressionLevel
}

// Encode implements rgbd.Sink.
func (p PNG) Encode(_ context.Context, f *rgbd.Frame) (rgbd.Payload, error) {
	if bpp := f.ColorBPP(); bpp > 3 {
		return nil, fmt.Errorf("%w: png needs at most 3 color bytes per pixel, got %d",
			rgbd.ErrUnsupportedChannelDepth, bpp)
	}

	data, err := RGBToPNG(frameToRGBA(f), p.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrEncodingFailure, err)
	}

	return &PNGPayload{
		Width:     f.Width,
		Height:    f.Height,
		PNG:       data,
		PNGLength: len(data),
	}, nil
}

// frameToRGBA lays the flat color channel out as an opaque raster. A frame
// without color renders black.
func frameToRGBA(f *rgbd.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	bpp := f.ColorBPP()
	for i := 0; i < f.Pixels(); i++ {
		px := img.Pix[i*4 : i*4+4]
		if bpp == 3 {
			copy(px, f.Color[i*3:i*3+3])
		}
		px[3] = 0xff
	}
	return img
}

// RGBToPNG converts an RGB image to PNG bytes. Fully opaque images are
// written as truecolor without an alpha channel.
func RGBToPNG(img *image.RGBA, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
