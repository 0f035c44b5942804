package rosbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// Subscriber is an rgbd.Source reading the next color and depth Image
// published on two topics. The requested size is ignored: the frame takes
// the size the publisher reports.
type Subscriber struct {
	cfg    SubscriberConfig
	logger *slog.Logger
}

// NewSubscriber creates a ros input.
func NewSubscriber(cfg SubscriberConfig, logger *slog.Logger) (*Subscriber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.DepthByteOrder == "" {
		cfg.DepthByteOrder = ByteOrderAsIs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{cfg: cfg, logger: logger}, nil
}

// Acquire implements rgbd.Source.
func (s *Subscriber) Acquire(ctx context.Context, width, height int) (f *rgbd.Frame, err error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	c, err := New(s.cfg.Conn, s.logger)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	defer rgbd.Release(&err, "rosbridge connection", c.Close)

	color, depth, err := s.receivePair(ctx, c)
	if err != nil {
		return nil, err
	}

	if color.Width != depth.Width || color.Height != depth.Height {
		return nil, fmt.Errorf("%w: color %dx%d, depth %dx%d", rgbd.ErrProtocolMismatch,
			color.Width, color.Height, depth.Width, depth.Height)
	}
	if int(color.Width) != width || int(color.Height) != height {
		s.logger.Debug("ros frame size differs from request",
			"requested", fmt.Sprintf("%dx%d", width, height),
			"received", fmt.Sprintf("%dx%d", color.Width, color.Height),
		)
	}

	rgb, err := packedRows(color)
	if err != nil {
		return nil, fmt.Errorf("color: %w", err)
	}
	if color.Encoding == EncodingBGR8 {
		swapRB(rgb)
	}

	z, err := packedRows(depth)
	if err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	if depth.IsBigendian != 0 {
		switch s.cfg.DepthByteOrder {
		case ByteOrderLittleEndian:
			if err := rgbd.SwapBytePairs(z); err != nil {
				return nil, fmt.Errorf("depth: %w", err)
			}
		default:
			s.logger.Warn("depth image is big-endian, passing bytes through unchanged",
				"topic", s.cfg.DepthTopic,
				"encoding", depth.Encoding,
			)
		}
	}

	return rgbd.NewFrame(int(color.Width), int(color.Height), rgb, z)
}

// receivePair subscribes to both topics and returns the first image seen
// on each, unsubscribing from a topic as soon as its image arrives.
func (s *Subscriber) receivePair(ctx context.Context, c *Client) (color, depth *Image, err error) {
	colorID, err := c.Subscribe(s.cfg.ColorTopic, ImageType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}
	depthID, err := c.Subscribe(s.cfg.DepthTopic, ImageType)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
	}

	s.logger.Debug("waiting for images",
		"color_topic", s.cfg.ColorTopic,
		"depth_topic", s.cfg.DepthTopic,
		"timeout", s.cfg.Timeout,
	)

	for color == nil || depth == nil {
		op, err := c.Next(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, fmt.Errorf("%w: waiting for %s and %s",
					rgbd.ErrAcquisitionTimeout, s.cfg.ColorTopic, s.cfg.DepthTopic)
			}
			if errors.Is(err, context.Canceled) {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
		}

		switch {
		case op.Op == OpStatus:
			s.logger.Warn("rosbridge status", "level", op.Level, "msg", string(op.Msg))
			continue
		case op.Op != OpPublish:
			continue
		}

		switch op.Topic {
		case s.cfg.ColorTopic:
			if color != nil {
				continue
			}
			if color, err = decodeImage(op.Msg); err != nil {
				return nil, nil, err
			}
			if err := c.Unsubscribe(s.cfg.ColorTopic, colorID); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
			}
		case s.cfg.DepthTopic:
			if depth != nil {
				continue
			}
			if depth, err = decodeImage(op.Msg); err != nil {
				return nil, nil, err
			}
			if err := c.Unsubscribe(s.cfg.DepthTopic, depthID); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", rgbd.ErrSourceUnavailable, err)
			}
		}
	}
	return color, depth, nil
}

func decodeImage(raw json.RawMessage) (*Image, error) {
	var img Image
	if err := json.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", rgbd.ErrProtocolMismatch, err)
	}
	return &img, nil
}

// packedRows drops row padding when the encoding and step allow it.
func packedRows(img *Image) ([]byte, error) {
	bpp, ok := encodingBPP[img.Encoding]
	rowBytes := int(img.Width) * bpp
	if !ok || img.Step == 0 || int(img.Step) == rowBytes {
		return img.Data, nil
	}
	return rgbd.Unstride(img.Data, int(img.Height), rowBytes, int(img.Step))
}

func swapRB(rgb []byte) {
	for i := 0; i+2 < len(rgb); i += 3 {
		rgb[i], rgb[i+2] = rgb[i+2], rgb[i]
	}
}
