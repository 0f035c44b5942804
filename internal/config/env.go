// Package config provides environment helpers for go-rgbd commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for the frame server.
const (
	DefaultPort       = 5000
	DefaultConfigPath = "rgbd.yaml"
	DefaultLogLevel   = "info"
)

// Port returns the listen port from the PORT env var.
// Falls back to def if unset or not a number.
func Port(def int) int {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 65535 {
			return p
		}
	}
	return def
}

// ConfigPath returns the capture config file from RGBD_CONFIG env var or def.
func ConfigPath(def string) string {
	if path := os.Getenv("RGBD_CONFIG"); path != "" {
		return path
	}
	return def
}

// LogLevel returns the log level from LOG_LEVEL env var or def.
func LogLevel(def string) string {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return def
}
