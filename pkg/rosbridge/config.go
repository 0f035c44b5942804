// Package rosbridge talks to a ROS graph through a rosbridge server using
// the rosbridge v2 JSON protocol over WebSocket.
//
// This package provides:
//   - Client: connection, subscribe/advertise/publish operations
//   - Subscriber: an rgbd.Source reading one color and one depth Image
//   - Publisher: an rgbd.Sink publishing a frame as two Image messages
package rosbridge

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds rosbridge connection settings.
type Config struct {
	// Host of the rosbridge server.
	Host string `yaml:"host" json:"host"`

	// Port of the rosbridge server. Default: 9090
	Port int `yaml:"port" json:"port"`

	// Path of the WebSocket endpoint. Default: "/"
	Path string `yaml:"path" json:"path"`

	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" json:"handshake_timeout"`
}

// DefaultConfig returns a Config pointing at a local rosbridge server.
func DefaultConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Port:             9090,
		Path:             "/",
		HandshakeTimeout: 5 * time.Second,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("handshake timeout must be positive")
	}
	return nil
}

// URL returns the WebSocket URL of the server.
func (c *Config) URL() string {
	path := c.Path
	if path == "" {
		path = "/"
	}
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   path,
	}
	return u.String()
}

// ByteOrder selects how a big-endian depth image is handled.
type ByteOrder string

const (
	// ByteOrderAsIs keeps depth bytes as delivered and logs a warning when
	// the message declares big-endian data.
	ByteOrderAsIs ByteOrder = "as_is"

	// ByteOrderLittleEndian swaps each 16-bit sample of a big-endian depth
	// image so the frame is always little-endian.
	ByteOrderLittleEndian ByteOrder = "little_endian"
)

// SubscriberConfig configures the ros input.
type SubscriberConfig struct {
	Conn Config

	ColorTopic string
	DepthTopic string

	// Timeout bounds the wait for both images. 0 waits forever.
	Timeout time.Duration

	DepthByteOrder ByteOrder
}

// DefaultSubscriberConfig returns the default RealSense ROS topics.
func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		Conn:           DefaultConfig(),
		ColorTopic:     "/camera/color/image_raw",
		DepthTopic:     "/camera/depth/image_rect_raw",
		DepthByteOrder: ByteOrderAsIs,
	}
}

// Validate checks that the configuration is valid.
func (c *SubscriberConfig) Validate() error {
	if err := c.Conn.Validate(); err != nil {
		return err
	}
	if c.ColorTopic == "" || c.DepthTopic == "" {
		return fmt.Errorf("color and depth topics are required")
	}
	if c.ColorTopic == c.DepthTopic {
		return fmt.Errorf("color and depth topics must differ")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0")
	}
	switch c.DepthByteOrder {
	case "", ByteOrderAsIs, ByteOrderLittleEndian:
	default:
		return fmt.Errorf("depth byte order must be %q or %q, got %q",
			ByteOrderAsIs, ByteOrderLittleEndian, c.DepthByteOrder)
	}
	return nil
}

// PublisherConfig configures the ros output.
type PublisherConfig struct {
	Conn Config

	ColorTopic string
	DepthTopic string

	// FrameID is written into the shared message header.
	FrameID string
}

// DefaultPublisherConfig returns the default upload topics.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		Conn:       DefaultConfig(),
		ColorTopic: "/fake_camera/color",
		DepthTopic: "/fake_camera/depth",
		FrameID:    "camera_link",
	}
}

// Validate checks that the configuration is valid.
func (c *PublisherConfig) Validate() error {
	if err := c.Conn.Validate(); err != nil {
		return err
	}
	if c.ColorTopic == "" || c.DepthTopic == "" {
		return fmt.Errorf("color and depth topics are required")
	}
	if c.ColorTopic == c.DepthTopic {
		return fmt.Errorf("color and depth topics must differ")
	}
	return nil
}
