package acquisition

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rgbd/pkg/camera"
	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// State is a step of a single request.
type State string

// Request states.
const (
	StateDispatch State = "dispatch"
	StateAcquire  State = "acquire"
	StateEncode   State = "encode"
	StateDone     State = "done"
	StateFailed   State = "failed"
)

// Request asks for one frame from Source, encoded by Sink.
type Request struct {
	Source string
	Sink   string

	// Config supplies the frame size and the adapter settings.
	Config camera.Config
}

// Orchestrator runs one source and one sink per request. Adapters are
// built fresh for every request and nothing is retried.
type Orchestrator struct {
	factories Factories
	logger    *slog.Logger
}

// New creates an orchestrator. Missing factories default to the
// built-in adapters.
func New(factories Factories, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if factories.Source == nil {
		factories.Source = NewSource
	}
	if factories.Sink == nil {
		factories.Sink = NewSink
	}
	return &Orchestrator{
		factories: factories,
		logger:    logger.With("component", "acquisition"),
	}
}

// GetFrame acquires one frame and encodes it.
//
// Unknown names fail before any adapter is built. An acquisition failure
// skips the sink; an encoding failure discards the frame. Adapter errors
// are wrapped in *rgbd.SourceError or *rgbd.SinkError.
func (o *Orchestrator) GetFrame(ctx context.Context, req Request) (rgbd.Payload, error) {
	start := time.Now()
	log := o.logger.With(
		"request_id", uuid.NewString(),
		"source", req.Source,
		"sink", req.Sink,
	)

	state := StateDispatch
	fail := func(err error) (rgbd.Payload, error) {
		log.Warn("frame request failed",
			"state", state,
			"kind", rgbd.Kind(err),
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}

	srcKind, err := ParseSource(req.Source)
	if err != nil {
		return fail(err)
	}
	sinkKind, err := ParseSink(req.Sink)
	if err != nil {
		return fail(err)
	}

	src, err := o.factories.Source(srcKind, req.Config, o.logger)
	if err != nil {
		return fail(&rgbd.SourceError{Source: req.Source, Err: err})
	}
	snk, err := o.factories.Sink(sinkKind, req.Config, o.logger)
	if err != nil {
		return fail(&rgbd.SinkError{Sink: req.Sink, Err: err})
	}

	state = StateAcquire
	log.Debug("acquiring frame",
		"width", req.Config.Camera.Width,
		"height", req.Config.Camera.Height,
	)
	frame, err := src.Acquire(ctx, req.Config.Camera.Width, req.Config.Camera.Height)
	if err != nil {
		return fail(&rgbd.SourceError{Source: req.Source, Err: err})
	}

	state = StateEncode
	log.Debug("encoding frame", "frame", frame)
	payload, err := snk.Encode(ctx, frame)
	if err != nil {
		return fail(&rgbd.SinkError{Sink: req.Sink, Err: err})
	}

	log.Info("frame request done",
		"state", StateDone,
		"frame", frame,
		"duration", time.Since(start),
	)
	return payload, nil
}

// Supported lists the recognised source and sink names.
func Supported() (sources, sinks []string) {
	return SourceNames(), SinkNames()
}
