package rgbd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Bytes is a byte sequence that serialises to JSON as an array of
// integers instead of Go's default base64 string, so clients can index
// pixels directly. Unmarshalling accepts either form.
type Bytes []byte

// MarshalJSON implements json.Marshaler.
func (b Bytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	// Worst case "255," per entry.
	out := make([]byte, 0, 2+len(b)*4)
	out = append(out, '[')
	for i, v := range b {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendUint(out, uint64(v), 10)
	}
	return append(out, ']'), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("decode base64 bytes: %w", err)
		}
		*b = raw
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return fmt.Errorf("byte value %d at index %d out of range", v, i)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
