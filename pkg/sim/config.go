// Package sim acquires frames from a camera rendered inside a running
// physics simulation.
//
// The simulator process runs a small render bridge that answers
// get_camera_image requests. Messages are msgpack encoded and framed by a
// 4-byte big-endian length. Two transports are supported:
//   - "tcp": a plain TCP stream
//   - "udp": a QUIC stream over UDP, negotiating ALPN
//
// This package does not speak a simulator's native client protocol. To
// render from a real physics engine, run a bridge inside the simulator
// process that, for each connection:
//
//  1. reads one framed Request,
//  2. passes Width, Height, ViewMatrix and ProjectionMatrix to the
//     engine's camera render call (for PyBullet, getCameraImage),
//  3. answers with one framed Response carrying the RGBA pixels and the
//     normalized depth buffer as Height rows of Width values, or Error.
//
// cmd/sim-bridge is such a bridge serving TestPattern instead of a
// physics scene, and Server can host any Renderer written in Go.
package sim

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Mode selects the bridge transport.
type Mode string

const (
	ModeTCP Mode = "tcp"
	ModeUDP Mode = "udp"
)

// Vec3 is a point or direction in world coordinates.
type Vec3 [3]float64

// Config holds the bridge address and the virtual camera parameters.
type Config struct {
	Mode Mode   `yaml:"mode" json:"mode"`
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	Eye    Vec3 `yaml:"eye_position" json:"eye_position"`
	Up     Vec3 `yaml:"eye_up_vector" json:"eye_up_vector"`
	Target Vec3 `yaml:"target_position" json:"target_position"`

	// FOV is the vertical field of view in degrees.
	FOV    float64 `yaml:"fov" json:"fov"`
	Aspect float64 `yaml:"aspect" json:"aspect"`
	Near   float64 `yaml:"near_distance" json:"near_distance"`
	Far    float64 `yaml:"far_distance" json:"far_distance"`

	// Timeout bounds one request. 0 disables it.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig returns a camera three units above the origin looking down.
func DefaultConfig() Config {
	return Config{
		Mode:    ModeTCP,
		Host:    "127.0.0.1",
		Port:    6667,
		Eye:     Vec3{0, 0, 3},
		Up:      Vec3{0, 1, 0},
		Target:  Vec3{0, 0, 0},
		FOV:     45,
		Aspect:  1,
		Near:    0.1,
		Far:     3.1,
		Timeout: 10 * time.Second,
	}
}

// Validate checks the configuration. The transport mode is checked when
// connecting.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("sim: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("sim: port must be in 1..65535, got %d", c.Port)
	}
	if c.FOV <= 0 || c.FOV >= 180 {
		return fmt.Errorf("sim: fov must be in (0, 180), got %g", c.FOV)
	}
	if c.Aspect <= 0 {
		return fmt.Errorf("sim: aspect must be positive")
	}
	if c.Near <= 0 || c.Far <= c.Near {
		return fmt.Errorf("sim: need 0 < near < far, got near=%g far=%g", c.Near, c.Far)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("sim: timeout must be >= 0")
	}
	return nil
}

// Address returns host:port of the bridge.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
