//go:build realsense

package realsense

/*
#cgo LDFLAGS: -lrealsense2
#include <stdlib.h>
#include <librealsense2/rs.h>
#include <librealsense2/h/rs_pipeline.h>
#include <librealsense2/h/rs_config.h>
#include <librealsense2/h/rs_frame.h>

static int rgbd_rs2_api_version(void) { return RS2_API_VERSION; }
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

type librsPipeline struct {
	ctx     *C.rs2_context
	pipe    *C.rs2_pipeline
	cfg     *C.rs2_config
	profile *C.rs2_pipeline_profile
}

func rsError(e *C.rs2_error) error {
	if e == nil {
		return nil
	}
	defer C.rs2_free_error(e)
	return fmt.Errorf("%s: %s",
		C.GoString(C.rs2_get_failed_function(e)),
		C.GoString(C.rs2_get_error_message(e)))
}

func openPipeline() (pipeline, error) {
	var e *C.rs2_error

	ctx := C.rs2_create_context(C.rgbd_rs2_api_version(), &e)
	if err := rsError(e); err != nil {
		return nil, err
	}

	pipe := C.rs2_create_pipeline(ctx, &e)
	if err := rsError(e); err != nil {
		C.rs2_delete_context(ctx)
		return nil, err
	}

	cfg := C.rs2_create_config(&e)
	if err := rsError(e); err != nil {
		C.rs2_delete_pipeline(pipe)
		C.rs2_delete_context(ctx)
		return nil, err
	}

	return &librsPipeline{ctx: ctx, pipe: pipe, cfg: cfg}, nil
}

func (p *librsPipeline) Start(width, height, fps int) error {
	var e *C.rs2_error

	C.rs2_config_enable_stream(p.cfg, C.RS2_STREAM_COLOR, 0,
		C.int(width), C.int(height), C.RS2_FORMAT_RGB8, C.int(fps), &e)
	if err := rsError(e); err != nil {
		return err
	}
	C.rs2_config_enable_stream(p.cfg, C.RS2_STREAM_DEPTH, 0,
		C.int(width), C.int(height), C.RS2_FORMAT_Z16, C.int(fps), &e)
	if err := rsError(e); err != nil {
		return err
	}

	p.profile = C.rs2_pipeline_start_with_config(p.pipe, p.cfg, &e)
	return rsError(e)
}

func (p *librsPipeline) WaitForFrames(timeout time.Duration) (color, depth rawFrame, err error) {
	var e *C.rs2_error
	var frames *C.rs2_frame

	ok := C.rs2_pipeline_try_wait_for_frames(p.pipe, &frames, C.uint(timeout.Milliseconds()), &e)
	if err := rsError(e); err != nil {
		return color, depth, err
	}
	if ok == 0 {
		return color, depth, fmt.Errorf("%w: no frameset within %s", rgbd.ErrAcquisitionTimeout, timeout)
	}
	defer C.rs2_release_frame(frames)

	n := C.rs2_embedded_frames_count(frames, &e)
	if err := rsError(e); err != nil {
		return color, depth, err
	}

	var haveColor, haveDepth bool
	for i := C.int(0); i < n; i++ {
		fr := C.rs2_extract_frame(frames, i, &e)
		if err := rsError(e); err != nil {
			return color, depth, err
		}
		stream, raw, err := readFrame(fr)
		C.rs2_release_frame(fr)
		if err != nil {
			return color, depth, err
		}
		switch stream {
		case C.RS2_STREAM_COLOR:
			color, haveColor = raw, true
		case C.RS2_STREAM_DEPTH:
			depth, haveDepth = raw, true
		}
	}

	if !haveColor || !haveDepth {
		return color, depth, fmt.Errorf("%w: frameset missing color or depth", rgbd.ErrProtocolMismatch)
	}
	return color, depth, nil
}

func readFrame(fr *C.rs2_frame) (C.rs2_stream, rawFrame, error) {
	var e *C.rs2_error
	var (
		stream                   C.rs2_stream
		format                   C.rs2_format
		index, uniqueID, frameHz C.int
	)

	prof := C.rs2_get_frame_stream_profile(fr, &e)
	if err := rsError(e); err != nil {
		return stream, rawFrame{}, err
	}
	C.rs2_get_stream_profile_data(prof, &stream, &format, &index, &uniqueID, &frameHz, &e)
	if err := rsError(e); err != nil {
		return stream, rawFrame{}, err
	}

	w := C.rs2_get_frame_width(fr, &e)
	if err := rsError(e); err != nil {
		return stream, rawFrame{}, err
	}
	h := C.rs2_get_frame_height(fr, &e)
	if err := rsError(e); err != nil {
		return stream, rawFrame{}, err
	}
	stride := C.rs2_get_frame_stride_in_bytes(fr, &e)
	if err := rsError(e); err != nil {
		return stream, rawFrame{}, err
	}
	data := C.rs2_get_frame_data(fr, &e)
	if err := rsError(e); err != nil {
		return stream, rawFrame{}, err
	}

	return stream, rawFrame{
		Width:  int(w),
		Height: int(h),
		Stride: int(stride),
		Data:   C.GoBytes(unsafe.Pointer(data), stride*h),
	}, nil
}

func (p *librsPipeline) Stop() error {
	var err error
	if p.profile != nil {
		var e *C.rs2_error
		C.rs2_pipeline_stop(p.pipe, &e)
		err = rsError(e)
		C.rs2_delete_pipeline_profile(p.profile)
		p.profile = nil
	}
	if p.cfg != nil {
		C.rs2_delete_config(p.cfg)
		p.cfg = nil
	}
	if p.pipe != nil {
		C.rs2_delete_pipeline(p.pipe)
		p.pipe = nil
	}
	if p.ctx != nil {
		C.rs2_delete_context(p.ctx)
		p.ctx = nil
	}
	return err
}
