package acquisition

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-rgbd/pkg/camera"
	"github.com/teslashibe/go-rgbd/pkg/realsense"
	"github.com/teslashibe/go-rgbd/pkg/rgbd"
	"github.com/teslashibe/go-rgbd/pkg/rosbridge"
	"github.com/teslashibe/go-rgbd/pkg/sim"
	"github.com/teslashibe/go-rgbd/pkg/sink"
	"github.com/teslashibe/go-rgbd/pkg/webcam"
)

// SourceFactory builds the adapter for kind from cfg.
type SourceFactory func(kind SourceKind, cfg camera.Config, logger *slog.Logger) (rgbd.Source, error)

// SinkFactory builds the encoder for kind from cfg.
type SinkFactory func(kind SinkKind, cfg camera.Config, logger *slog.Logger) (rgbd.Sink, error)

// Factories builds adapters for the orchestrator.
type Factories struct {
	Source SourceFactory
	Sink   SinkFactory
}

// DefaultFactories returns the factories for the built-in adapters.
func DefaultFactories() Factories {
	return Factories{
		Source: NewSource,
		Sink:   NewSink,
	}
}

// NewSource builds the built-in source adapter for kind.
func NewSource(kind SourceKind, cfg camera.Config, logger *slog.Logger) (rgbd.Source, error) {
	switch kind {
	case SourceRealSense:
		return realsense.New(cfg.RealSenseConfig(), logger)
	case SourceROS:
		return rosbridge.NewSubscriber(cfg.SubscriberConfig(), logger)
	case SourceOpenCV:
		return webcam.New(cfg.WebcamConfig(), logger)
	case SourcePyBullet:
		return sim.New(cfg.SimConfig(), logger)
	default:
		return nil, fmt.Errorf("%w: %v", rgbd.ErrUnrecognizedSource, kind)
	}
}

// NewSink builds the built-in sink encoder for kind.
func NewSink(kind SinkKind, cfg camera.Config, logger *slog.Logger) (rgbd.Sink, error) {
	switch kind {
	case SinkSplit:
		return sink.Split{}, nil
	case SinkInterleaved:
		return sink.Interleaved{}, nil
	case SinkPNG:
		return sink.PNG{}, nil
	case SinkROS:
		return rosbridge.NewPublisher(cfg.PublisherConfig(), logger)
	default:
		return nil, fmt.Errorf("%w: %v", rgbd.ErrUnrecognizedSink, kind)
	}
}
