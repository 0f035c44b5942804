package acquisition

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/teslashibe/go-rgbd/pkg/camera"
	"github.com/teslashibe/go-rgbd/pkg/rgbd"
	"github.com/teslashibe/go-rgbd/pkg/sink"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// recorder counts factory and adapter calls.
type recorder struct {
	sourcesBuilt int
	sinksBuilt   int
	acquired     int
	encoded      int

	acquireErr error
	encodeErr  error

	gotWidth, gotHeight int
}

func (r *recorder) factories() Factories {
	return Factories{
		Source: func(kind SourceKind, cfg camera.Config, _ *slog.Logger) (rgbd.Source, error) {
			r.sourcesBuilt++
			return rgbd.SourceFunc(func(_ context.Context, w, h int) (*rgbd.Frame, error) {
				r.acquired++
				r.gotWidth, r.gotHeight = w, h
				if r.acquireErr != nil {
					return nil, r.acquireErr
				}
				return rgbd.NewFrame(2, 1, []byte{10, 20, 30, 40, 50, 60}, []byte{1, 0, 2, 0})
			}), nil
		},
		Sink: func(kind SinkKind, cfg camera.Config, logger *slog.Logger) (rgbd.Sink, error) {
			r.sinksBuilt++
			inner, err := NewSink(kind, cfg, logger)
			if err != nil {
				return nil, err
			}
			return rgbd.SinkFunc(func(ctx context.Context, f *rgbd.Frame) (rgbd.Payload, error) {
				r.encoded++
				if r.encodeErr != nil {
					return nil, r.encodeErr
				}
				return inner.Encode(ctx, f)
			}), nil
		},
	}
}

func TestParseNames(t *testing.T) {
	for _, name := range SourceNames() {
		k, err := ParseSource(name)
		if err != nil {
			t.Fatalf("ParseSource(%q): %v", name, err)
		}
		if k.String() != name {
			t.Errorf("round trip %q -> %q", name, k.String())
		}
	}
	for _, name := range SinkNames() {
		k, err := ParseSink(name)
		if err != nil {
			t.Fatalf("ParseSink(%q): %v", name, err)
		}
		if k.String() != name {
			t.Errorf("round trip %q -> %q", name, k.String())
		}
	}

	if _, err := ParseSource("RGB+D"); !errors.Is(err, rgbd.ErrUnrecognizedSource) {
		t.Errorf("ParseSource(RGB+D) = %v", err)
	}
	if _, err := ParseSink("jpeg"); !errors.Is(err, rgbd.ErrUnrecognizedSink) {
		t.Errorf("ParseSink(jpeg) = %v", err)
	}
	if got := SourceKind(42).String(); got != "SourceKind(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestGetFrame_Interleaved(t *testing.T) {
	r := &recorder{}
	o := New(r.factories(), quiet)

	cfg := camera.DefaultConfig()
	cfg.Camera.Width, cfg.Camera.Height = 640, 480

	payload, err := o.GetFrame(context.Background(), Request{Source: "opencv", Sink: "rgbd", Config: cfg})
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}

	p, ok := payload.(*sink.InterleavedPayload)
	if !ok {
		t.Fatalf("payload is %T", payload)
	}
	want := []byte{10, 20, 30, 1, 0, 40, 50, 60, 2, 0}
	if string(p.RGBD) != string(want) || p.RGBDLength != 10 {
		t.Errorf("rgbd = %v (len %d)", p.RGBD, p.RGBDLength)
	}
	if r.gotWidth != 640 || r.gotHeight != 480 {
		t.Errorf("source asked for %dx%d", r.gotWidth, r.gotHeight)
	}
}

func TestGetFrame_UnrecognizedSource(t *testing.T) {
	r := &recorder{}
	o := New(r.factories(), quiet)

	_, err := o.GetFrame(context.Background(), Request{Source: "kinect", Sink: "png", Config: camera.DefaultConfig()})
	if !errors.Is(err, rgbd.ErrUnrecognizedSource) {
		t.Fatalf("err = %v, want ErrUnrecognizedSource", err)
	}
	if r.sourcesBuilt != 0 || r.sinksBuilt != 0 {
		t.Errorf("adapters built: sources=%d sinks=%d", r.sourcesBuilt, r.sinksBuilt)
	}
}

func TestGetFrame_UnrecognizedSink(t *testing.T) {
	r := &recorder{}
	o := New(r.factories(), quiet)

	_, err := o.GetFrame(context.Background(), Request{Source: "ros", Sink: "bmp", Config: camera.DefaultConfig()})
	if !errors.Is(err, rgbd.ErrUnrecognizedSink) {
		t.Fatalf("err = %v, want ErrUnrecognizedSink", err)
	}
	if r.sourcesBuilt != 0 || r.acquired != 0 {
		t.Errorf("source touched: built=%d acquired=%d", r.sourcesBuilt, r.acquired)
	}
}

func TestGetFrame_AcquireFailureSkipsSink(t *testing.T) {
	r := &recorder{acquireErr: rgbd.ErrAcquisitionTimeout}
	o := New(r.factories(), quiet)

	_, err := o.GetFrame(context.Background(), Request{Source: "pybullet", Sink: "rgb+d", Config: camera.DefaultConfig()})
	if !errors.Is(err, rgbd.ErrAcquisitionTimeout) {
		t.Fatalf("err = %v", err)
	}
	var srcErr *rgbd.SourceError
	if !errors.As(err, &srcErr) || srcErr.Source != "pybullet" {
		t.Errorf("expected SourceError for pybullet, got %v", err)
	}
	if r.encoded != 0 {
		t.Errorf("sink ran %d times", r.encoded)
	}
}

func TestGetFrame_EncodeFailure(t *testing.T) {
	r := &recorder{}
	o := New(r.factories(), quiet)

	cfg := camera.DefaultConfig()
	_, err := o.GetFrame(context.Background(), Request{Source: "usb_realsense", Sink: "png", Config: cfg})
	if err != nil {
		t.Fatalf("png of 3bpp color should succeed: %v", err)
	}

	r.encodeErr = rgbd.ErrUnsupportedChannelDepth
	_, err = o.GetFrame(context.Background(), Request{Source: "usb_realsense", Sink: "png", Config: cfg})
	if !errors.Is(err, rgbd.ErrUnsupportedChannelDepth) {
		t.Fatalf("err = %v", err)
	}
	var sinkErr *rgbd.SinkError
	if !errors.As(err, &sinkErr) || sinkErr.Sink != "png" {
		t.Errorf("expected SinkError for png, got %v", err)
	}
	if r.acquired != 2 {
		t.Errorf("acquired = %d, want 2", r.acquired)
	}
}

func TestGetFrame_FactoryFailure(t *testing.T) {
	o := New(Factories{
		Source: func(SourceKind, camera.Config, *slog.Logger) (rgbd.Source, error) {
			return nil, errors.New("bad config")
		},
	}, quiet)

	_, err := o.GetFrame(context.Background(), Request{Source: "ros", Sink: "rgbd", Config: camera.DefaultConfig()})
	var srcErr *rgbd.SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("expected SourceError, got %v", err)
	}
}

func TestNewSink_BuiltIns(t *testing.T) {
	cfg := camera.DefaultConfig()
	for _, name := range SinkNames() {
		kind, _ := ParseSink(name)
		s, err := NewSink(kind, cfg, quiet)
		if err != nil {
			t.Errorf("NewSink(%s): %v", name, err)
		}
		if s == nil {
			t.Errorf("NewSink(%s) returned nil", name)
		}
	}
}

func TestNewSource_BuiltIns(t *testing.T) {
	cfg := camera.DefaultConfig()
	for _, name := range SourceNames() {
		kind, _ := ParseSource(name)
		if _, err := NewSource(kind, cfg, quiet); err != nil {
			t.Errorf("NewSource(%s): %v", name, err)
		}
	}
}

func TestSupported(t *testing.T) {
	sources, sinks := Supported()
	if len(sources) != 4 || len(sinks) != 4 {
		t.Errorf("sources=%v sinks=%v", sources, sinks)
	}
	sources[0] = "mutated"
	if SourceNames()[0] != "usb_realsense" {
		t.Error("Supported exposes internal state")
	}
}
