package sim

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// OpGetCameraImage asks the bridge to render one camera image.
const OpGetCameraImage = "get_camera_image"

// maxMessageSize caps one framed message.
const maxMessageSize = 256 << 20

// Request is sent by the adapter.
type Request struct {
	Op               string      `msgpack:"op"`
	Width            int         `msgpack:"width"`
	Height           int         `msgpack:"height"`
	ViewMatrix       [16]float32 `msgpack:"view_matrix"`
	ProjectionMatrix [16]float32 `msgpack:"projection_matrix"`
}

// Response is the bridge's answer. RGBA holds Width*Height*4 bytes and
// Depth holds Height rows of Width normalized depth values in [0, 1].
type Response struct {
	Width  int         `msgpack:"width"`
	Height int         `msgpack:"height"`
	RGBA   []byte      `msgpack:"rgba"`
	Depth  [][]float64 `msgpack:"depth"`
	Error  string      `msgpack:"error,omitempty"`
}

// writeMessage writes v as a length-prefixed msgpack message.
func writeMessage(w io.Writer, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal msgpack: %w", err)
	}
	if len(body) > maxMessageSize {
		return fmt.Errorf("message of %d bytes exceeds limit", len(body))
	}

	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// errBadMessage marks a framing or decoding failure, as opposed to an I/O
// failure.
type errBadMessage struct{ err error }

func (e *errBadMessage) Error() string { return e.err.Error() }
func (e *errBadMessage) Unwrap() error { return e.err }

// readMessage reads one length-prefixed msgpack message into v.
func readMessage(r io.Reader, v any) error {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return fmt.Errorf("read length prefix: %w", err)
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n > maxMessageSize {
		return &errBadMessage{fmt.Errorf("message length %d exceeds limit", n)}
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read message body: %w", err)
	}
	if err := msgpack.Unmarshal(body, v); err != nil {
		return &errBadMessage{fmt.Errorf("unmarshal msgpack: %w", err)}
	}
	return nil
}
