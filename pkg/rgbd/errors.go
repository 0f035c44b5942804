package rgbd

import (
	"errors"
	"fmt"
)

// Sentinel errors for the acquisition taxonomy.
var (
	// ErrUnrecognizedSource is returned when the input source name is unknown.
	ErrUnrecognizedSource = errors.New("rgbd: unrecognized source")

	// ErrUnrecognizedSink is returned when the output format name is unknown.
	ErrUnrecognizedSink = errors.New("rgbd: unrecognized sink")

	// ErrSourceUnavailable is returned when a device or connection could not be opened.
	ErrSourceUnavailable = errors.New("rgbd: source unavailable")

	// ErrAcquisitionTimeout is returned when no frame arrived in time.
	ErrAcquisitionTimeout = errors.New("rgbd: acquisition timeout")

	// ErrProtocolMismatch is returned when color and depth channels disagree
	// or a source delivers data that cannot form a valid frame.
	ErrProtocolMismatch = errors.New("rgbd: protocol mismatch")

	// ErrUnsupportedChannelDepth is returned when a sink cannot handle a channel's bpp.
	ErrUnsupportedChannelDepth = errors.New("rgbd: unsupported channel depth")

	// ErrEncodingFailure is returned when image serialization fails.
	ErrEncodingFailure = errors.New("rgbd: encoding failure")

	// ErrInvalidFrame is returned by NewFrame when the layout invariants do not hold.
	ErrInvalidFrame = fmt.Errorf("rgbd: invalid frame: %w", ErrProtocolMismatch)
)

// SourceError wraps an error with the name of the source that produced it.
type SourceError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("rgbd source [%s]: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// SinkError wraps an error with the name of the sink that produced it.
type SinkError struct {
	Sink string
	Err  error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("rgbd sink [%s]: %v", e.Sink, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// Kind returns the taxonomy name of err, or "internal" when err does not
// belong to the taxonomy.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnrecognizedSource):
		return "unrecognized_source"
	case errors.Is(err, ErrUnrecognizedSink):
		return "unrecognized_sink"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrAcquisitionTimeout):
		return "acquisition_timeout"
	case errors.Is(err, ErrProtocolMismatch):
		return "protocol_mismatch"
	case errors.Is(err, ErrUnsupportedChannelDepth):
		return "unsupported_channel_depth"
	case errors.Is(err, ErrEncodingFailure):
		return "encoding_failure"
	default:
		return "internal"
	}
}

// Release runs closer and records its failure in *errp.
//
// It is meant to be deferred right after a resource is opened:
//
//	conn, err := open()
//	if err != nil { ... }
//	defer rgbd.Release(&err, "connection", conn.Close)
//
// A release failure never hides the primary error: both are joined and
// errors.Is matches either.
func Release(errp *error, name string, closer func() error) {
	cerr := closer()
	if cerr == nil {
		return
	}
	cerr = fmt.Errorf("release %s: %w", name, cerr)
	if *errp == nil {
		*errp = cerr
		return
	}
	*errp = errors.Join(*errp, cerr)
}
