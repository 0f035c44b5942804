// rgbd-server: HTTP frame server for RGB-D cameras, ROS topics, webcams
// and simulators.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-rgbd/internal/config"
	"github.com/teslashibe/go-rgbd/internal/log"
	"github.com/teslashibe/go-rgbd/pkg/acquisition"
	"github.com/teslashibe/go-rgbd/pkg/camera"
	"github.com/teslashibe/go-rgbd/pkg/web"
)

var (
	version    = "1.0.0"
	port       = flag.Int("port", config.DefaultPort, "HTTP server port")
	configPath = flag.String("config", config.DefaultConfigPath, "Capture config file (created when missing)")
	logLevel   = flag.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	debug      = flag.Bool("debug", false, "Enable debug logging and the access log")
	timeout    = flag.Duration("request-timeout", 30*time.Second, "Upper bound for a single frame request (0 = none)")
)

func main() {
	flag.Parse()

	// Environment overrides flags
	*port = config.Port(*port)
	*configPath = config.ConfigPath(*configPath)
	*logLevel = config.LogLevel(*logLevel)
	if *debug {
		*logLevel = "debug"
	}

	logger := log.Init(*logLevel)

	mgr, err := camera.Open(*configPath, logger)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	mgr.OnConfigChange = func(cfg camera.Config) error {
		logger.Info("capture config changed",
			"width", cfg.Camera.Width,
			"height", cfg.Camera.Height,
		)
		return nil
	}

	orch := acquisition.New(acquisition.DefaultFactories(), logger)

	srv := web.NewServer(web.Config{
		Addr:           fmt.Sprintf(":%d", *port),
		Version:        version,
		RequestTimeout: *timeout,
		Debug:          *debug,
	}, orch, mgr, logger)

	go func() {
		sources, sinks := acquisition.Supported()
		logger.Info("rgbd-server starting",
			"version", version,
			"port", *port,
			"config", mgr.Path(),
			"sources", sources,
			"formats", sinks,
		)
		if err := srv.Listen(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
