package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// Adapter is an rgbd.Source rendering one frame through the bridge.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
	dial   func(ctx context.Context, cfg Config) (conn, error)
}

// New creates a simulator adapter.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		cfg:    cfg,
		logger: logger.With("component", "sim", "mode", string(cfg.Mode), "addr", cfg.Address()),
		dial:   dialBridge,
	}, nil
}

// Acquire implements rgbd.Source.
func (a *Adapter) Acquire(ctx context.Context, width, height int) (f *rgbd.Frame, err error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	c, err := a.dial(ctx, a.cfg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: connect: %v", rgbd.ErrAcquisitionTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	defer rgbd.Release(&err, "simulator connection", c.Close)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.SetDeadline(time.Now())
	})
	defer stop()

	req := Request{
		Op:               OpGetCameraImage,
		Width:            width,
		Height:           height,
		ViewMatrix:       ViewMatrix(a.cfg.Eye, a.cfg.Target, a.cfg.Up),
		ProjectionMatrix: ProjectionMatrixFOV(a.cfg.FOV, a.cfg.Aspect, a.cfg.Near, a.cfg.Far),
	}
	if err := writeMessage(c, &req); err != nil {
		return nil, a.classify(ctx, err)
	}

	var resp Response
	if err := readMessage(c, &resp); err != nil {
		return nil, a.classify(ctx, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: simulator: %s", rgbd.ErrSourceUnavailable, resp.Error)
	}

	a.logger.Debug("rendered camera image",
		"width", resp.Width,
		"height", resp.Height,
	)

	return toFrame(&resp)
}

func (a *Adapter) classify(ctx context.Context, err error) error {
	var bad *errBadMessage
	var ne net.Error
	switch {
	case errors.As(err, &bad):
		return fmt.Errorf("%w: %v", rgbd.ErrProtocolMismatch, err)
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	case ctx.Err() != nil, errors.As(err, &ne) && ne.Timeout():
		return fmt.Errorf("%w: %v", rgbd.ErrAcquisitionTimeout, err)
	default:
		return fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
}

// toFrame strips alpha from the color image and rescales normalized depth
// to little-endian 16-bit samples.
func toFrame(resp *Response) (*rgbd.Frame, error) {
	rgb, err := rgbd.StripAlpha(resp.RGBA)
	if err != nil {
		return nil, fmt.Errorf("color: %w", err)
	}
	depth, err := rgbd.Flatten[float64](resp.Depth, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: depth: %v", rgbd.ErrProtocolMismatch, err)
	}

	pixels := resp.Width * resp.Height
	if len(rgb) != pixels*3 || len(depth) != pixels {
		return nil, fmt.Errorf("%w: %dx%d image with %d color and %d depth pixels",
			rgbd.ErrProtocolMismatch, resp.Width, resp.Height, len(rgb)/3, len(depth))
	}

	z := make([]uint16, len(depth))
	for i, v := range depth {
		z[i] = DepthToUint16(v)
	}

	return rgbd.NewFrame(resp.Width, resp.Height, rgb, rgbd.DepthToBytes(z))
}
