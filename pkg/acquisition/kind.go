// Package acquisition selects one source and one sink per request and runs
// them in sequence: Dispatch, Acquire, Encode, then Done or Failed.
package acquisition

import (
	"fmt"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// SourceKind identifies a source adapter.
type SourceKind int

// Source kinds.
const (
	SourceRealSense SourceKind = iota
	SourceROS
	SourceOpenCV
	SourcePyBullet
)

var sourceNames = [...]string{
	SourceRealSense: "usb_realsense",
	SourceROS:       "ros",
	SourceOpenCV:    "opencv",
	SourcePyBullet:  "pybullet",
}

// String returns the request name of k.
func (k SourceKind) String() string {
	if k < 0 || int(k) >= len(sourceNames) {
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
	return sourceNames[k]
}

// ParseSource resolves a request name to a SourceKind.
func ParseSource(name string) (SourceKind, error) {
	for k, n := range sourceNames {
		if n == name {
			return SourceKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", rgbd.ErrUnrecognizedSource, name)
}

// SinkKind identifies a sink encoder.
type SinkKind int

// Sink kinds.
const (
	SinkSplit SinkKind = iota
	SinkInterleaved
	SinkPNG
	SinkROS
)

var sinkNames = [...]string{
	SinkSplit:       "rgb+d",
	SinkInterleaved: "rgbd",
	SinkPNG:         "png",
	SinkROS:         "ros",
}

// String returns the request name of k.
func (k SinkKind) String() string {
	if k < 0 || int(k) >= len(sinkNames) {
		return fmt.Sprintf("SinkKind(%d)", int(k))
	}
	return sinkNames[k]
}

// ParseSink resolves a request name to a SinkKind.
func ParseSink(name string) (SinkKind, error) {
	for k, n := range sinkNames {
		if n == name {
			return SinkKind(k), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", rgbd.ErrUnrecognizedSink, name)
}

// SourceNames returns every recognised source name.
func SourceNames() []string {
	return append([]string(nil), sourceNames[:]...)
}

// SinkNames returns every recognised sink name.
func SinkNames() []string {
	return append([]string(nil), sinkNames[:]...)
}
