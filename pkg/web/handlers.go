package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-rgbd/pkg/acquisition"
	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// statusFor maps an acquisition error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rgbd.ErrUnrecognizedSource), errors.Is(err, rgbd.ErrUnrecognizedSink):
		return fiber.StatusNotFound
	case errors.Is(err, rgbd.ErrSourceUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, rgbd.ErrAcquisitionTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, rgbd.ErrProtocolMismatch):
		return fiber.StatusBadGateway
	case errors.Is(err, rgbd.ErrUnsupportedChannelDepth):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// pathParam decodes a route parameter. A literal '+' is kept, so the
// "rgb+d" format works escaped or not.
func pathParam(v string) string {
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func newErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Kind: rgbd.Kind(err)}
}

func (s *Server) handleHelp(c *fiber.Ctx) error {
	sources, _ := acquisition.Supported()

	var b strings.Builder
	for _, name := range sources {
		fmt.Fprintf(&b, "<p>/camera/%s</p>\n", name)
	}
	b.WriteString("<br/>\n<p>/camera/request_config (capture parameters used for every frame)</p>\n")

	c.Type("html")
	return c.SendString(b.String())
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	sources, sinks := acquisition.Supported()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": s.cfg.Version,
		"sources": sources,
		"formats": sinks,
	})
}

// handleFormats lists the output formats of a source.
func (s *Server) handleFormats(c *fiber.Ctx) error {
	if _, err := acquisition.ParseSource(pathParam(c.Params("source"))); err != nil {
		return c.Status(statusFor(err)).JSON(newErrorResponse(err))
	}

	_, sinks := acquisition.Supported()
	c.Type("html")
	return c.SendString("<p>Supported formats: " + strings.Join(sinks, " ") + "</p>")
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	ctx, cancel := s.frameContext(c.UserContext())
	defer cancel()

	payload, err := s.frames.GetFrame(ctx, acquisition.Request{
		Source: pathParam(c.Params("source")),
		Sink:   pathParam(c.Params("format")),
		Config: s.config.GetConfig(),
	})
	if err != nil {
		return c.Status(statusFor(err)).JSON(newErrorResponse(err))
	}
	return c.JSON(payload)
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.config.GetConfigJSON())
}

// handleSetConfig applies request-config keys from a form or JSON body
// and persists the result.
func (s *Server) handleSetConfig(c *fiber.Ctx) error {
	params, err := requestParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error(), Kind: "invalid_request"})
	}

	if err := s.config.UpdateConfig(params); err != nil {
		s.logger.Warn("config update rejected", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error(), Kind: "invalid_config"})
	}
	return c.JSON(fiber.Map{})
}

// requestParams reads the body as JSON, a multipart form or a url-encoded
// form. Form values keep every occurrence of a repeated key.
func requestParams(c *fiber.Ctx) (map[string]any, error) {
	if c.Is("json") {
		var params map[string]any
		if err := json.Unmarshal(c.Body(), &params); err != nil {
			return nil, fmt.Errorf("parse json body: %w", err)
		}
		return params, nil
	}

	params := make(map[string]any)
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		for k, v := range form.Value {
			params[k] = v
		}
		return params, nil
	}

	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		k := string(key)
		list, _ := params[k].([]string)
		params[k] = append(list, string(value))
	})
	return params, nil
}

// handleFrameWS answers every inbound message with one frame.
func (s *Server) handleFrameWS(c *websocket.Conn) {
	source, format := pathParam(c.Params("source")), pathParam(c.Params("format"))
	log := s.logger.With("source", source, "format", format)
	log.Debug("frame socket opened")
	defer log.Debug("frame socket closed")

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}

		ctx, cancel := s.frameContext(context.Background())
		payload, err := s.frames.GetFrame(ctx, acquisition.Request{
			Source: source,
			Sink:   format,
			Config: s.config.GetConfig(),
		})
		cancel()

		var reply any = payload
		if err != nil {
			reply = newErrorResponse(err)
		}
		if err := c.WriteJSON(reply); err != nil {
			log.Warn("frame socket write failed", "error", err)
			return
		}
	}
}
