package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"math/rand"
	"testing"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

func mustFrame(t *testing.T, w, h int, color, depth []byte) *rgbd.Frame {
	t.Helper()
	f, err := rgbd.NewFrame(w, h, color, depth)
	if err != nil {
		t.Fatalf("NewFrame: %v", err)
	}
	return f
}

func TestSplit_Passthrough(t *testing.T) {
	f := mustFrame(t, 2, 1, []byte{10, 20, 30, 40, 50, 60}, []byte{1, 0, 2, 0})

	out, err := Split{}.Encode(context.Background(), f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p := out.(*SplitPayload)

	if p.Width != 2 || p.Height != 1 {
		t.Errorf("dims = %dx%d", p.Width, p.Height)
	}
	if !bytes.Equal(p.Color, f.Color) || p.ColorLength != 6 || p.ColorBPP != 3 {
		t.Errorf("color = %v len=%d bpp=%d", p.Color, p.ColorLength, p.ColorBPP)
	}
	if !bytes.Equal(p.Depth, f.Depth) || p.DepthLength != 4 || p.DepthBPP != 2 {
		t.Errorf("depth = %v len=%d bpp=%d", p.Depth, p.DepthLength, p.DepthBPP)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"width":2,"height":1,"color":[10,20,30,40,50,60],"color_length":6,"color_bpp":3,` +
		`"depth":[1,0,2,0],"depth_length":4,"depth_bpp":2}`
	if string(data) != want {
		t.Errorf("json = %s\nwant  %s", data, want)
	}
}

func TestInterleaved_Scenario(t *testing.T) {
	f := mustFrame(t, 2, 1, []byte{10, 20, 30, 40, 50, 60}, []byte{1, 0, 2, 0})

	out, err := Interleaved{}.Encode(context.Background(), f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p := out.(*InterleavedPayload)

	want := []byte{10, 20, 30, 1, 0, 40, 50, 60, 2, 0}
	if !bytes.Equal(p.RGBD, want) {
		t.Errorf("rgbd = %v, want %v", p.RGBD, want)
	}
	if p.RGBDLength != 10 {
		t.Errorf("rgbd_length = %d, want 10", p.RGBDLength)
	}
	if p.ColorBPP != 3 || p.DepthBPP != 2 {
		t.Errorf("bpp = %d/%d", p.ColorBPP, p.DepthBPP)
	}
}

func TestInterleaved_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, tc := range []struct{ w, h, cbpp, dbpp int }{
		{4, 3, 3, 2},
		{1, 1, 6, 2},
		{5, 2, 3, 1},
		{3, 3, 3, 4},
	} {
		color := make([]byte, tc.w*tc.h*tc.cbpp)
		depth := make([]byte, tc.w*tc.h*tc.dbpp)
		rng.Read(color)
		rng.Read(depth)
		f := mustFrame(t, tc.w, tc.h, color, depth)

		out, err := Interleaved{}.Encode(context.Background(), f)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		p := out.(*InterleavedPayload)

		gotColor, gotDepth, err := Deinterleave(p.RGBD, p.ColorBPP, p.DepthBPP)
		if err != nil {
			t.Fatalf("Deinterleave: %v", err)
		}
		if !bytes.Equal(gotColor, color) || !bytes.Equal(gotDepth, depth) {
			t.Errorf("%+v: round trip mismatch", tc)
		}
	}
}

func TestInterleaved_EmptyChannelTruncates(t *testing.T) {
	f := mustFrame(t, 2, 2, make([]byte, 12), nil)

	out, err := Interleaved{}.Encode(context.Background(), f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p := out.(*InterleavedPayload)
	if p.RGBDLength != 0 || len(p.RGBD) != 0 {
		t.Errorf("expected empty output when depth is empty, got %d bytes", p.RGBDLength)
	}
}

func TestPNG_Encode(t *testing.T) {
	color := []byte{
		255, 0, 0, 0, 255, 0,
		0, 0, 255, 10, 20, 30,
	}
	f := mustFrame(t, 2, 2, color, make([]byte, 8))

	out, err := PNG{}.Encode(context.Background(), f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	p := out.(*PNGPayload)
	if p.Width != 2 || p.Height != 2 || p.PNGLength != len(p.PNG) {
		t.Fatalf("payload header = %+v", p)
	}

	img, err := png.Decode(bytes.NewReader(p.PNG))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Fatalf("bounds = %v", b)
	}
	r, g, b, a := img.At(1, 1).RGBA()
	if r>>8 != 10 || g>>8 != 20 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("pixel (1,1) = %d,%d,%d,%d", r>>8, g>>8, b>>8, a>>8)
	}
	r, _, _, _ = img.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Errorf("pixel (0,0) red = %d", r>>8)
	}
}

func TestPNG_RejectsWideColor(t *testing.T) {
	f := mustFrame(t, 1, 1, make([]byte, 6), make([]byte, 2))

	_, err := PNG{}.Encode(context.Background(), f)
	if !errors.Is(err, rgbd.ErrUnsupportedChannelDepth) {
		t.Fatalf("err = %v, want ErrUnsupportedChannelDepth", err)
	}
}

func TestPNG_EmptyFrameFailsEncoding(t *testing.T) {
	f := mustFrame(t, 0, 0, nil, nil)

	_, err := PNG{}.Encode(context.Background(), f)
	if !errors.Is(err, rgbd.ErrEncodingFailure) {
		t.Fatalf("err = %v, want ErrEncodingFailure", err)
	}
}

func TestPNG_NoColorRendersBlack(t *testing.T) {
	f := mustFrame(t, 2, 1, nil, make([]byte, 4))

	out, err := PNG{}.Encode(context.Background(), f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out.(*PNGPayload).PNG))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	r, g, b, _ := img.At(1, 0).RGBA()
	if r|g|b != 0 {
		t.Errorf("expected black pixel")
	}
}

func TestDeinterleave_Ragged(t *testing.T) {
	if _, _, err := Deinterleave([]byte{1, 2, 3}, 1, 1); !errors.Is(err, rgbd.ErrProtocolMismatch) {
		t.Errorf("err = %v", err)
	}
	c, d, err := Deinterleave(nil, 0, 0)
	if err != nil || c != nil || d != nil {
		t.Errorf("zero stride: %v %v %v", c, d, err)
	}
}
