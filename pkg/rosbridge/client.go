package rosbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one rosbridge WebSocket connection.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	// Stats
	messagesSent     atomic.Int64
	messagesReceived atomic.Int64
}

// Stats holds client statistics.
type Stats struct {
	Connected        bool
	MessagesSent     int64
	MessagesReceived int64
}

// New creates a rosbridge client. Call Connect to open the connection.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		logger: logger.With("component", "rosbridge", "url", cfg.URL()),
	}, nil
}

// Connect opens the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL(), nil)
	if err != nil {
		return fmt.Errorf("dial rosbridge: %w", err)
	}
	c.conn = conn

	c.logger.Debug("connected to rosbridge")
	return nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil

	c.logger.Debug("rosbridge connection closed",
		"sent", c.messagesSent.Load(),
		"received", c.messagesReceived.Load(),
	)
	return err
}

// Stats returns client statistics.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	connected := c.conn != nil
	c.mu.Unlock()

	return Stats{
		Connected:        connected,
		MessagesSent:     c.messagesSent.Load(),
		MessagesReceived: c.messagesReceived.Load(),
	}
}

func (c *Client) send(op Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(op); err != nil {
		return fmt.Errorf("%s %s: %w", op.Op, op.Topic, err)
	}
	c.messagesSent.Add(1)
	return nil
}

func newID(op, topic string) string {
	return op + ":" + topic + ":" + uuid.NewString()
}

// Subscribe starts delivery of msgType messages on topic and returns the
// subscription id.
func (c *Client) Subscribe(topic, msgType string) (string, error) {
	id := newID(OpSubscribe, topic)
	return id, c.send(Operation{Op: OpSubscribe, ID: id, Topic: topic, Type: msgType})
}

// Unsubscribe stops the subscription with the given id.
func (c *Client) Unsubscribe(topic, id string) error {
	return c.send(Operation{Op: OpUnsubscribe, ID: id, Topic: topic})
}

// Advertise announces that this client will publish msgType on topic and
// returns the advertisement id.
func (c *Client) Advertise(topic, msgType string) (string, error) {
	id := newID(OpAdvertise, topic)
	return id, c.send(Operation{Op: OpAdvertise, ID: id, Topic: topic, Type: msgType})
}

// Unadvertise retracts the advertisement with the given id.
func (c *Client) Unadvertise(topic, id string) error {
	return c.send(Operation{Op: OpUnadvertise, ID: id, Topic: topic})
}

// Publish sends msg on topic.
func (c *Client) Publish(topic string, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}
	return c.send(Operation{Op: OpPublish, ID: newID(OpPublish, topic), Topic: topic, Msg: data})
}

// Next blocks until the server sends a message, ctx is done, or the
// connection fails.
func (c *Client) Next(ctx context.Context) (*Operation, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	// Reads are only issued from the caller's goroutine; the deadline is
	// the sole cross-goroutine interaction.
	deadline, _ := ctx.Deadline()
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, data, err := conn.ReadMessage()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ne net.Error
		if !deadline.IsZero() && errors.As(err, &ne) && ne.Timeout() {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("read: %w", err)
	}
	c.messagesReceived.Add(1)

	var op Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	return &op, nil
}
