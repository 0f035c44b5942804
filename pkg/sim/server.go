package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// Renderer produces the image for one request.
type Renderer func(ctx context.Context, req *Request) (*Response, error)

// Server answers render bridge requests, one request per connection. It
// is the Go side of a bridge and the peer used in tests.
type Server struct {
	render Renderer
	logger *slog.Logger

	wg sync.WaitGroup
}

// NewServer creates a bridge server.
func NewServer(render Renderer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{render: render, logger: logger.With("component", "sim-server")}
}

// ServeTCP accepts connections until ctx is done or the listener fails.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer c.Close()
			s.handle(ctx, c)
		}()
	}
}

// ServeQUIC accepts QUIC connections until ctx is done or the listener
// fails. The listener needs a TLS config offering ALPN.
func (s *Server) ServeQUIC(ctx context.Context, ln *quic.Listener) error {
	defer s.wg.Wait()

	for {
		qc, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleQUIC(ctx, qc)
		}()
	}
}

func (s *Server) handleQUIC(ctx context.Context, qc *quic.Conn) {
	st, err := qc.AcceptStream(ctx)
	if err != nil {
		_ = qc.CloseWithError(0, "")
		return
	}
	s.handle(ctx, st)
	_ = st.Close()

	// The client closes the connection once it has read the response.
	select {
	case <-qc.Context().Done():
	case <-ctx.Done():
		_ = qc.CloseWithError(0, "")
	case <-time.After(10 * time.Second):
		_ = qc.CloseWithError(0, "response not acknowledged")
	}
}

func (s *Server) handle(ctx context.Context, rw io.ReadWriter) {
	var req Request
	if err := readMessage(rw, &req); err != nil {
		s.logger.Warn("read request failed", "error", err)
		return
	}

	resp, err := s.serveRequest(ctx, &req)
	if err != nil {
		resp = &Response{Error: err.Error()}
	}
	if err := writeMessage(rw, resp); err != nil {
		s.logger.Warn("write response failed", "error", err)
	}
}

func (s *Server) serveRequest(ctx context.Context, req *Request) (*Response, error) {
	if req.Op != OpGetCameraImage {
		return nil, fmt.Errorf("unknown op %q", req.Op)
	}
	resp, err := s.render(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New("renderer returned no image")
	}
	return resp, nil
}
