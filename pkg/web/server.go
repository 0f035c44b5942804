// Package web serves frames and capture configuration over HTTP and
// WebSocket.
package web

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-rgbd/pkg/acquisition"
	"github.com/teslashibe/go-rgbd/pkg/camera"
	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// FrameGetter produces one encoded frame per call.
type FrameGetter interface {
	GetFrame(ctx context.Context, req acquisition.Request) (rgbd.Payload, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr    string
	Version string

	// RequestTimeout bounds a single frame request. 0 leaves it to the
	// source's own timeout.
	RequestTimeout time.Duration

	// Debug enables the access log.
	Debug bool
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:           ":5000",
		Version:        "dev",
		RequestTimeout: 30 * time.Second,
	}
}

// Server is the frame server.
type Server struct {
	app    *fiber.App
	cfg    Config
	frames FrameGetter
	config *camera.Manager
	logger *slog.Logger
}

// NewServer creates a frame server backed by frames and config.
func NewServer(cfg Config, frames FrameGetter, config *camera.Manager, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		frames: frames,
		config: config,
		logger: log.With("component", "web"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "rgbd-server",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	app.Get("/", s.handleHelp)
	app.Get("/health", s.handleHealth)

	// Registered before /camera/:source so it is not taken for a source.
	app.Get("/camera/request_config", s.handleGetConfig)
	app.Post("/camera/request_config", s.handleSetConfig)

	app.Get("/camera/:source", s.handleFormats)
	app.Get("/camera/:source/:format", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/camera/:source/:format", websocket.New(s.handleFrameWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured address until Shutdown.
func (s *Server) Listen() error {
	s.logger.Info("frame server listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("frame server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// frameContext derives the context for one frame request.
func (s *Server) frameContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(parent, s.cfg.RequestTimeout)
	}
	return context.WithCancel(parent)
}
