package sim

import (
	"context"
	"fmt"
)

// TestPattern is a Renderer for a synthetic scene: a color ramp over a
// floor whose depth grows from the top row (near plane) to the bottom row
// (far plane). It stands in for a simulator when none is running.
func TestPattern(_ context.Context, req *Request) (*Response, error) {
	w, h := req.Width, req.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", w, h)
	}

	rgba := make([]byte, 0, w*h*4)
	depth := make([][]float64, h)
	for y := 0; y < h; y++ {
		d := ramp(y, h)
		row := make([]float64, w)
		for x := 0; x < w; x++ {
			r := byte(255 * ramp(x, w))
			rgba = append(rgba, r, byte(255*d), 255-r, 255)
			row[x] = d
		}
		depth[y] = row
	}
	return &Response{Width: w, Height: h, RGBA: rgba, Depth: depth}, nil
}

// ramp maps i in [0, n) onto [0, 1].
func ramp(i, n int) float64 {
	if n < 2 {
		return 0
	}
	return float64(i) / float64(n-1)
}
