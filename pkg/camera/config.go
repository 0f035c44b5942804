// Package camera owns the per-source capture configuration: the data
// model, defaults, validation, runtime updates and YAML persistence.
// Adapters receive their own config types derived from it.
package camera

import (
	"fmt"
	"strconv"
	"time"

	"github.com/teslashibe/go-rgbd/pkg/realsense"
	"github.com/teslashibe/go-rgbd/pkg/rosbridge"
	"github.com/teslashibe/go-rgbd/pkg/sim"
	"github.com/teslashibe/go-rgbd/pkg/webcam"
)

// Config holds the configuration of every source and sink.
type Config struct {
	Camera         CameraSection         `yaml:"camera" json:"camera"`
	WorkerROS      WorkerROSSection      `yaml:"worker_ros" json:"worker_ros"`
	WorkerOpenCV   WorkerOpenCVSection   `yaml:"worker_opencv" json:"worker_opencv"`
	WorkerPyBullet WorkerPyBulletSection `yaml:"worker_pybullet" json:"worker_pybullet"`
	UploadROS      UploadROSSection      `yaml:"upload_ros" json:"upload_ros"`
	USBRealSense   USBRealSenseSection   `yaml:"usb_realsense" json:"usb_realsense"`
}

// CameraSection is the requested frame size, shared by all sources.
type CameraSection struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// WorkerROSSection configures the ros input.
type WorkerROSSection struct {
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	TopicColor string `yaml:"topic_color" json:"topic_color"`
	TopicDepth string `yaml:"topic_depth" json:"topic_depth"`

	// Timeout of 0 waits for the publisher forever.
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	DepthByteOrder string        `yaml:"depth_byte_order" json:"depth_byte_order"`
}

// WorkerOpenCVSection configures the opencv input.
type WorkerOpenCVSection struct {
	// Device is an index ("0") or a device path.
	Device string `yaml:"device" json:"device"`
}

// WorkerPyBulletSection configures the pybullet input.
type WorkerPyBulletSection struct {
	Mode           string        `yaml:"mode" json:"mode"`
	Host           string        `yaml:"host" json:"host"`
	Port           int           `yaml:"port" json:"port"`
	EyePosition    [3]float64    `yaml:"eye_position,flow" json:"eye_position"`
	EyeUpVector    [3]float64    `yaml:"eye_up_vector,flow" json:"eye_up_vector"`
	TargetPosition [3]float64    `yaml:"target_position,flow" json:"target_position"`
	FOV            float64       `yaml:"fov" json:"fov"`
	Aspect         float64       `yaml:"aspect" json:"aspect"`
	NearDistance   float64       `yaml:"near_distance" json:"near_distance"`
	FarDistance    float64       `yaml:"far_distance" json:"far_distance"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
}

// UploadROSSection configures the ros output.
type UploadROSSection struct {
	Host       string `yaml:"host" json:"host"`
	Port       int    `yaml:"port" json:"port"`
	TopicColor string `yaml:"topic_color" json:"topic_color"`
	TopicDepth string `yaml:"topic_depth" json:"topic_depth"`
	FrameID    string `yaml:"frame_id" json:"frame_id"`
}

// USBRealSenseSection configures the usb_realsense input.
type USBRealSenseSection struct {
	WarmupFrames int           `yaml:"warmup_frames" json:"warmup_frames"`
	FPS          int           `yaml:"fps" json:"fps"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// Limits on the requested frame size.
const (
	MaxWidth  = 7680
	MaxHeight = 4320
)

// DefaultConfig returns the default configuration: 720p from local
// services.
func DefaultConfig() Config {
	ros := rosbridge.DefaultSubscriberConfig()
	up := rosbridge.DefaultPublisherConfig()
	s := sim.DefaultConfig()
	rs := realsense.DefaultConfig()

	return Config{
		Camera: CameraSection{
			Width:  1280,
			Height: 720,
		},
		WorkerROS: WorkerROSSection{
			Host:           ros.Conn.Host,
			Port:           ros.Conn.Port,
			TopicColor:     ros.ColorTopic,
			TopicDepth:     ros.DepthTopic,
			Timeout:        0,
			DepthByteOrder: string(rosbridge.ByteOrderAsIs),
		},
		WorkerOpenCV: WorkerOpenCVSection{
			Device: webcam.DefaultConfig().Device,
		},
		WorkerPyBullet: WorkerPyBulletSection{
			Mode:           string(s.Mode),
			Host:           s.Host,
			Port:           s.Port,
			EyePosition:    s.Eye,
			EyeUpVector:    s.Up,
			TargetPosition: s.Target,
			FOV:            s.FOV,
			Aspect:         s.Aspect,
			NearDistance:   s.Near,
			FarDistance:    s.Far,
			Timeout:        s.Timeout,
		},
		UploadROS: UploadROSSection{
			Host:       up.Conn.Host,
			Port:       up.Conn.Port,
			TopicColor: up.ColorTopic,
			TopicDepth: up.DepthTopic,
			FrameID:    up.FrameID,
		},
		USBRealSense: USBRealSenseSection{
			WarmupFrames: rs.WarmupFrames,
			FPS:          rs.FPS,
			Timeout:      rs.Timeout,
		},
	}
}

// Validate checks every section. Returns a list of validation errors, or
// nil if valid.
func (c *Config) Validate() []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if c.Camera.Width < 1 || c.Camera.Width > MaxWidth {
		errs = append(errs, fmt.Sprintf("camera.width must be between 1 and %d", MaxWidth))
	}
	if c.Camera.Height < 1 || c.Camera.Height > MaxHeight {
		errs = append(errs, fmt.Sprintf("camera.height must be between 1 and %d", MaxHeight))
	}

	ros := c.SubscriberConfig()
	add(prefixed("worker_ros", ros.Validate()))

	up := c.PublisherConfig()
	add(prefixed("upload_ros", up.Validate()))

	add(prefixed("worker_opencv", c.WebcamConfig().Validate()))

	s := c.SimConfig()
	add(s.Validate())
	if s.Mode != sim.ModeTCP && s.Mode != sim.ModeUDP {
		errs = append(errs, "worker_pybullet.mode must be tcp or udp")
	}

	add(c.RealSenseConfig().Validate())

	return errs
}

func prefixed(section string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", section, err)
}

// SubscriberConfig returns the ros input settings.
func (c *Config) SubscriberConfig() rosbridge.SubscriberConfig {
	cfg := rosbridge.DefaultSubscriberConfig()
	cfg.Conn.Host = c.WorkerROS.Host
	cfg.Conn.Port = c.WorkerROS.Port
	cfg.ColorTopic = c.WorkerROS.TopicColor
	cfg.DepthTopic = c.WorkerROS.TopicDepth
	cfg.Timeout = c.WorkerROS.Timeout
	cfg.DepthByteOrder = rosbridge.ByteOrder(c.WorkerROS.DepthByteOrder)
	return cfg
}

// PublisherConfig returns the ros output settings.
func (c *Config) PublisherConfig() rosbridge.PublisherConfig {
	cfg := rosbridge.DefaultPublisherConfig()
	cfg.Conn.Host = c.UploadROS.Host
	cfg.Conn.Port = c.UploadROS.Port
	cfg.ColorTopic = c.UploadROS.TopicColor
	cfg.DepthTopic = c.UploadROS.TopicDepth
	cfg.FrameID = c.UploadROS.FrameID
	return cfg
}

// WebcamConfig returns the opencv input settings.
func (c *Config) WebcamConfig() webcam.Config {
	return webcam.Config{Device: c.WorkerOpenCV.Device}
}

// SimConfig returns the pybullet input settings.
func (c *Config) SimConfig() sim.Config {
	p := c.WorkerPyBullet
	return sim.Config{
		Mode:    sim.Mode(p.Mode),
		Host:    p.Host,
		Port:    p.Port,
		Eye:     p.EyePosition,
		Up:      p.EyeUpVector,
		Target:  p.TargetPosition,
		FOV:     p.FOV,
		Aspect:  p.Aspect,
		Near:    p.NearDistance,
		Far:     p.FarDistance,
		Timeout: p.Timeout,
	}
}

// RealSenseConfig returns the usb_realsense input settings.
func (c *Config) RealSenseConfig() realsense.Config {
	return realsense.Config{
		WarmupFrames: c.USBRealSense.WarmupFrames,
		FPS:          c.USBRealSense.FPS,
		Timeout:      c.USBRealSense.Timeout,
	}
}

// DeviceIndex reports whether the opencv device is a numeric index.
func (c *Config) DeviceIndex() (int, bool) {
	idx, err := strconv.Atoi(c.WorkerOpenCV.Device)
	return idx, err == nil
}
