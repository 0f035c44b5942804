package rosbridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// seq numbers published headers across all publishers in the process.
var seq atomic.Uint32

// Ack is the empty payload returned after a successful publish.
type Ack struct{}

// Publisher is an rgbd.Sink publishing a frame as one rgb8 and one 16UC1
// Image sharing a header.
type Publisher struct {
	cfg     PublisherConfig
	logger  *slog.Logger
	now     func() time.Time
	connect func(ctx context.Context) (*Client, error)
}

// NewPublisher creates a ros output.
func NewPublisher(cfg PublisherConfig, logger *slog.Logger) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{cfg: cfg, logger: logger, now: time.Now}
	p.connect = p.dial
	return p, nil
}

func (p *Publisher) dial(ctx context.Context) (*Client, error) {
	c, err := New(p.cfg.Conn, p.logger)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	return c, nil
}

// Encode implements rgbd.Sink.
func (p *Publisher) Encode(ctx context.Context, f *rgbd.Frame) (payload rgbd.Payload, err error) {
	if f.ColorBPP() != 3 || f.DepthBPP() != 2 {
		return nil, fmt.Errorf("%w: ros output needs color_bpp 3 and depth_bpp 2, got %d and %d",
			rgbd.ErrUnsupportedChannelDepth, f.ColorBPP(), f.DepthBPP())
	}

	c, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer rgbd.Release(&err, "rosbridge connection", c.Close)

	colorID, err := c.Advertise(p.cfg.ColorTopic, ImageType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	defer rgbd.Release(&err, "color advertisement", func() error {
		return c.Unadvertise(p.cfg.ColorTopic, colorID)
	})

	depthID, err := c.Advertise(p.cfg.DepthTopic, ImageType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	defer rgbd.Release(&err, "depth advertisement", func() error {
		return c.Unadvertise(p.cfg.DepthTopic, depthID)
	})

	header := Header{
		Seq:     seq.Add(1),
		Stamp:   StampFrom(p.now()),
		FrameID: p.cfg.FrameID,
	}

	if err := c.Publish(p.cfg.ColorTopic, newImage(header, f, EncodingRGB8, 3, f.Color)); err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	if err := c.Publish(p.cfg.DepthTopic, newImage(header, f, Encoding16UC1, 2, f.Depth)); err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}

	p.logger.Debug("published frame",
		"seq", header.Seq,
		"color_topic", p.cfg.ColorTopic,
		"depth_topic", p.cfg.DepthTopic,
		"size", fmt.Sprintf("%dx%d", f.Width, f.Height),
	)

	return Ack{}, nil
}

func newImage(h Header, f *rgbd.Frame, encoding string, bpp int, data []byte) *Image {
	return &Image{
		Header:      h,
		Height:      uint32(f.Height),
		Width:       uint32(f.Width),
		Encoding:    encoding,
		IsBigendian: 0,
		Step:        uint32(f.Width * bpp),
		Data:        data,
	}
}
