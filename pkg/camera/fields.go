package camera

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type setter func(cfg *Config, value any) error

// fields maps each flat request key to the field it sets.
var fields = map[string]setter{
	"camera_width":  intField(func(c *Config) *int { return &c.Camera.Width }),
	"camera_height": intField(func(c *Config) *int { return &c.Camera.Height }),

	"worker_ros_host":             stringField(func(c *Config) *string { return &c.WorkerROS.Host }),
	"worker_ros_port":             intField(func(c *Config) *int { return &c.WorkerROS.Port }),
	"worker_ros_topic_color":      stringField(func(c *Config) *string { return &c.WorkerROS.TopicColor }),
	"worker_ros_topic_depth":      stringField(func(c *Config) *string { return &c.WorkerROS.TopicDepth }),
	"worker_ros_timeout":          durationField(func(c *Config) *time.Duration { return &c.WorkerROS.Timeout }),
	"worker_ros_depth_byte_order": stringField(func(c *Config) *string { return &c.WorkerROS.DepthByteOrder }),

	"worker_opencv_device": stringField(func(c *Config) *string { return &c.WorkerOpenCV.Device }),

	"worker_pybullet_mode":            stringField(func(c *Config) *string { return &c.WorkerPyBullet.Mode }),
	"worker_pybullet_host":            stringField(func(c *Config) *string { return &c.WorkerPyBullet.Host }),
	"worker_pybullet_port":            intField(func(c *Config) *int { return &c.WorkerPyBullet.Port }),
	"worker_pybullet_eye_position":    vecField(func(c *Config) *[3]float64 { return &c.WorkerPyBullet.EyePosition }),
	"worker_pybullet_eye_up_vector":   vecField(func(c *Config) *[3]float64 { return &c.WorkerPyBullet.EyeUpVector }),
	"worker_pybullet_target_position": vecField(func(c *Config) *[3]float64 { return &c.WorkerPyBullet.TargetPosition }),
	"worker_pybullet_fov":             floatField(func(c *Config) *float64 { return &c.WorkerPyBullet.FOV }),
	"worker_pybullet_aspect":          floatField(func(c *Config) *float64 { return &c.WorkerPyBullet.Aspect }),
	"worker_pybullet_near_distance":   floatField(func(c *Config) *float64 { return &c.WorkerPyBullet.NearDistance }),
	"worker_pybullet_far_distance":    floatField(func(c *Config) *float64 { return &c.WorkerPyBullet.FarDistance }),
	"worker_pybullet_timeout":         durationField(func(c *Config) *time.Duration { return &c.WorkerPyBullet.Timeout }),

	"upload_ros_host":        stringField(func(c *Config) *string { return &c.UploadROS.Host }),
	"upload_ros_port":        intField(func(c *Config) *int { return &c.UploadROS.Port }),
	"upload_ros_topic_color": stringField(func(c *Config) *string { return &c.UploadROS.TopicColor }),
	"upload_ros_topic_depth": stringField(func(c *Config) *string { return &c.UploadROS.TopicDepth }),
	"upload_ros_frame_id":    stringField(func(c *Config) *string { return &c.UploadROS.FrameID }),

	"usb_realsense_warmup_frames": intField(func(c *Config) *int { return &c.USBRealSense.WarmupFrames }),
	"usb_realsense_fps":           intField(func(c *Config) *int { return &c.USBRealSense.FPS }),
	"usb_realsense_timeout":       durationField(func(c *Config) *time.Duration { return &c.USBRealSense.Timeout }),
}

// Keys returns every flat request key UpdateConfig understands.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	return keys
}

// Flatten returns cfg keyed by the flat request keys. A numeric opencv
// device is reported as a number.
func Flatten(cfg Config) map[string]any {
	var device any = cfg.WorkerOpenCV.Device
	if idx, ok := cfg.DeviceIndex(); ok {
		device = idx
	}

	return map[string]any{
		"camera_width":  cfg.Camera.Width,
		"camera_height": cfg.Camera.Height,

		"worker_ros_host":             cfg.WorkerROS.Host,
		"worker_ros_port":             cfg.WorkerROS.Port,
		"worker_ros_topic_color":      cfg.WorkerROS.TopicColor,
		"worker_ros_topic_depth":      cfg.WorkerROS.TopicDepth,
		"worker_ros_timeout":          cfg.WorkerROS.Timeout.String(),
		"worker_ros_depth_byte_order": cfg.WorkerROS.DepthByteOrder,

		"worker_opencv_device": device,

		"worker_pybullet_mode":            cfg.WorkerPyBullet.Mode,
		"worker_pybullet_host":            cfg.WorkerPyBullet.Host,
		"worker_pybullet_port":            cfg.WorkerPyBullet.Port,
		"worker_pybullet_eye_position":    cfg.WorkerPyBullet.EyePosition,
		"worker_pybullet_eye_up_vector":   cfg.WorkerPyBullet.EyeUpVector,
		"worker_pybullet_target_position": cfg.WorkerPyBullet.TargetPosition,
		"worker_pybullet_fov":             cfg.WorkerPyBullet.FOV,
		"worker_pybullet_aspect":          cfg.WorkerPyBullet.Aspect,
		"worker_pybullet_near_distance":   cfg.WorkerPyBullet.NearDistance,
		"worker_pybullet_far_distance":    cfg.WorkerPyBullet.FarDistance,
		"worker_pybullet_timeout":         cfg.WorkerPyBullet.Timeout.String(),

		"upload_ros_host":        cfg.UploadROS.Host,
		"upload_ros_port":        cfg.UploadROS.Port,
		"upload_ros_topic_color": cfg.UploadROS.TopicColor,
		"upload_ros_topic_depth": cfg.UploadROS.TopicDepth,
		"upload_ros_frame_id":    cfg.UploadROS.FrameID,

		"usb_realsense_warmup_frames": cfg.USBRealSense.WarmupFrames,
		"usb_realsense_fps":           cfg.USBRealSense.FPS,
		"usb_realsense_timeout":       cfg.USBRealSense.Timeout.String(),
	}
}

func intField(get func(*Config) *int) setter {
	return func(c *Config, v any) error {
		n, err := toInt(v)
		if err != nil {
			return err
		}
		*get(c) = n
		return nil
	}
}

func floatField(get func(*Config) *float64) setter {
	return func(c *Config, v any) error {
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		*get(c) = f
		return nil
	}
}

func stringField(get func(*Config) *string) setter {
	return func(c *Config, v any) error {
		s, err := toString(v)
		if err != nil {
			return err
		}
		*get(c) = s
		return nil
	}
}

func durationField(get func(*Config) *time.Duration) setter {
	return func(c *Config, v any) error {
		d, err := toDuration(v)
		if err != nil {
			return err
		}
		*get(c) = d
		return nil
	}
}

func vecField(get func(*Config) *[3]float64) setter {
	return func(c *Config, v any) error {
		vec, err := toVec3(v)
		if err != nil {
			return err
		}
		*get(c) = vec
		return nil
	}
}

// single unwraps a one-element form value list.
func single(v any) any {
	if list, ok := v.([]string); ok && len(list) == 1 {
		return list[0]
	}
	return v
}

func toInt(v any) (int, error) {
	switch x := single(v).(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("cannot use %T as an integer", v)
	}
}

func toFloat(v any) (float64, error) {
	switch x := single(v).(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("cannot use %T as a number", v)
	}
}

func toString(v any) (string, error) {
	switch x := single(v).(type) {
	case string:
		return x, nil
	case int, int64, json.Number:
		return fmt.Sprint(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("cannot use %T as a string", v)
	}
}

// toDuration accepts a Go duration string ("5s") or a number of seconds.
func toDuration(v any) (time.Duration, error) {
	if s, ok := single(v).(string); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, nil
		}
	}
	secs, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// toVec3 accepts a three-element list of numbers or numeric strings, or a
// comma-separated string.
func toVec3(v any) ([3]float64, error) {
	var items []any
	switch x := v.(type) {
	case [3]float64:
		return x, nil
	case []float64:
		for _, f := range x {
			items = append(items, f)
		}
	case []any:
		items = x
	case []string:
		if len(x) == 1 {
			return toVec3(x[0])
		}
		for _, s := range x {
			items = append(items, s)
		}
	case string:
		for _, s := range strings.Split(x, ",") {
			items = append(items, s)
		}
	default:
		return [3]float64{}, fmt.Errorf("cannot use %T as a vector", v)
	}

	var vec [3]float64
	if len(items) != 3 {
		return vec, fmt.Errorf("vector needs 3 components, got %d", len(items))
	}
	for i, item := range items {
		f, err := toFloat(item)
		if err != nil {
			return vec, err
		}
		vec[i] = f
	}
	return vec, nil
}
