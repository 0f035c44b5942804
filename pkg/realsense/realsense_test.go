package realsense

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

type fakePipeline struct {
	color, depth rawFrame
	startErr     error
	waitErr      error
	failAfter    int
	stopErr      error

	started bool
	waits   int
	stopped int
}

func (p *fakePipeline) Start(width, height, fps int) error {
	if p.startErr != nil {
		return p.startErr
	}
	p.started = true
	return nil
}

func (p *fakePipeline) WaitForFrames(time.Duration) (rawFrame, rawFrame, error) {
	p.waits++
	if p.waitErr != nil && p.waits > p.failAfter {
		return rawFrame{}, rawFrame{}, p.waitErr
	}
	return p.color, p.depth, nil
}

func (p *fakePipeline) Stop() error {
	p.stopped++
	return p.stopErr
}

func newTestAdapter(t *testing.T, warmup int, p *fakePipeline) *Adapter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WarmupFrames = warmup
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.open = func() (pipeline, error) { return p, nil }
	return a
}

func z16(values ...uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.NativeEndian.PutUint16(out[i*2:], v)
	}
	return out
}

func TestAcquire_WarmupThenCapture(t *testing.T) {
	p := &fakePipeline{
		// 2x1 color padded to an 8-byte stride.
		color: rawFrame{Width: 2, Height: 1, Stride: 8, Data: []byte{10, 20, 30, 40, 50, 60, 0, 0}},
		depth: rawFrame{Width: 2, Height: 1, Stride: 4, Data: z16(1, 0x0102)},
	}
	a := newTestAdapter(t, 100, p)

	f, err := a.Acquire(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if p.waits != 101 {
		t.Errorf("waits = %d, want 101 (100 warmup + 1)", p.waits)
	}
	if p.stopped != 1 {
		t.Errorf("stopped = %d, want 1", p.stopped)
	}
	if f.Width != 2 || f.Height != 1 {
		t.Errorf("dims = %dx%d", f.Width, f.Height)
	}
	if string(f.Color) != string([]byte{10, 20, 30, 40, 50, 60}) {
		t.Errorf("color = %v", f.Color)
	}
	if want := []byte{1, 0, 0x02, 0x01}; string(f.Depth) != string(want) {
		t.Errorf("depth = %v, want little-endian %v", f.Depth, want)
	}
	if f.ColorBPP() != 3 || f.DepthBPP() != 2 {
		t.Errorf("bpp = %d/%d", f.ColorBPP(), f.DepthBPP())
	}
}

func TestAcquire_DimensionMismatch(t *testing.T) {
	p := &fakePipeline{
		color: rawFrame{Width: 2, Height: 1, Stride: 6, Data: make([]byte, 6)},
		depth: rawFrame{Width: 1, Height: 1, Stride: 2, Data: make([]byte, 2)},
	}
	a := newTestAdapter(t, 0, p)

	_, err := a.Acquire(context.Background(), 2, 1)
	if !errors.Is(err, rgbd.ErrProtocolMismatch) {
		t.Fatalf("err = %v, want ErrProtocolMismatch", err)
	}
	if p.stopped != 1 {
		t.Errorf("pipeline not stopped on error path")
	}
}

func TestAcquire_Timeout(t *testing.T) {
	p := &fakePipeline{
		waitErr:   rgbd.ErrAcquisitionTimeout,
		failAfter: 3,
	}
	a := newTestAdapter(t, 10, p)

	_, err := a.Acquire(context.Background(), 640, 480)
	if !errors.Is(err, rgbd.ErrAcquisitionTimeout) {
		t.Fatalf("err = %v, want ErrAcquisitionTimeout", err)
	}
	if p.waits != 4 {
		t.Errorf("waits = %d, want 4", p.waits)
	}
	if p.stopped != 1 {
		t.Errorf("pipeline not stopped after timeout")
	}
}

func TestAcquire_DeviceErrorWhileWaiting(t *testing.T) {
	// Fails on the captured frame with no warmup, and mid-warmup with three.
	for _, warmup := range []int{0, 3} {
		p := &fakePipeline{
			waitErr:   errors.New("rs2_pipeline_try_wait_for_frames: device disconnected"),
			failAfter: warmup / 2,
		}
		a := newTestAdapter(t, warmup, p)

		_, err := a.Acquire(context.Background(), 640, 480)
		if !errors.Is(err, rgbd.ErrSourceUnavailable) {
			t.Errorf("warmup %d: err = %v, want ErrSourceUnavailable", warmup, err)
		}
		if p.stopped != 1 {
			t.Errorf("warmup %d: pipeline not stopped", warmup)
		}
	}
}

func TestAcquire_StartFailure(t *testing.T) {
	p := &fakePipeline{startErr: errors.New("no device connected")}
	a := newTestAdapter(t, 0, p)

	_, err := a.Acquire(context.Background(), 640, 480)
	if !errors.Is(err, rgbd.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
	if p.stopped != 1 {
		t.Errorf("pipeline not released after failed start")
	}
}

func TestAcquire_OpenFailure(t *testing.T) {
	a := newTestAdapter(t, 0, nil)
	a.open = func() (pipeline, error) { return nil, errors.New("usb busy") }

	_, err := a.Acquire(context.Background(), 640, 480)
	if !errors.Is(err, rgbd.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestAcquire_StopErrorJoined(t *testing.T) {
	stopErr := errors.New("stop failed")
	p := &fakePipeline{
		color:   rawFrame{Width: 1, Height: 1, Stride: 3, Data: make([]byte, 3)},
		depth:   rawFrame{Width: 1, Height: 1, Stride: 2, Data: make([]byte, 2)},
		stopErr: stopErr,
	}
	a := newTestAdapter(t, 0, p)

	_, err := a.Acquire(context.Background(), 1, 1)
	if !errors.Is(err, stopErr) {
		t.Fatalf("err = %v, want stop error", err)
	}
}

func TestAcquire_ContextCancelledDuringWarmup(t *testing.T) {
	p := &fakePipeline{}
	a := newTestAdapter(t, 5, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Acquire(ctx, 640, 480)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if p.waits != 0 || p.stopped != 1 {
		t.Errorf("waits=%d stopped=%d", p.waits, p.stopped)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.FPS = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero fps")
	}
	if _, err := New(bad, nil); err == nil {
		t.Error("New should reject invalid config")
	}
}
