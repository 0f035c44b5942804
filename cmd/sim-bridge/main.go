// sim-bridge: render bridge serving a synthetic scene to the pybullet
// source, over TCP or QUIC.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/quic-go/quic-go"

	"github.com/teslashibe/go-rgbd/internal/config"
	"github.com/teslashibe/go-rgbd/internal/log"
	"github.com/teslashibe/go-rgbd/pkg/sim"
)

var (
	mode     = flag.String("mode", string(sim.ModeTCP), "Transport: tcp or udp (QUIC)")
	addr     = flag.String("addr", sim.DefaultConfig().Address(), "Listen address")
	logLevel = flag.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := log.Init(config.LogLevel(*logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := sim.NewServer(sim.TestPattern, logger)

	var err error
	switch sim.Mode(*mode) {
	case sim.ModeTCP:
		var ln net.Listener
		ln, err = net.Listen("tcp", *addr)
		if err == nil {
			logger.Info("sim bridge listening", "mode", *mode, "addr", ln.Addr().String())
			err = srv.ServeTCP(ctx, ln)
		}
	case sim.ModeUDP:
		tlsConf, tlsErr := sim.GenerateTLSConfig()
		if tlsErr != nil {
			err = tlsErr
			break
		}
		var ln *quic.Listener
		ln, err = quic.ListenAddr(*addr, tlsConf, nil)
		if err == nil {
			defer ln.Close()
			logger.Info("sim bridge listening", "mode", *mode, "addr", ln.Addr().String())
			err = srv.ServeQUIC(ctx, ln)
		}
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("sim bridge stopped", "error", err)
		os.Exit(1)
	}
}
