package rgbd

import (
	"encoding/binary"
	"fmt"
	"reflect"
)

// Flatten removes depth levels of nesting from nested and returns the
// leaves in row-major order. Flatten(x, 0) expects x to already be a []T,
// Flatten(x, 1) expects [][]T, Flatten(x, 2) expects [][][]T and so on.
// Arrays are accepted anywhere a slice is.
//
// The walk is iterative, one nesting level per pass.
func Flatten[T any](nested any, depth int) ([]T, error) {
	if depth < 0 {
		return nil, fmt.Errorf("flatten: negative depth %d", depth)
	}

	switch v := nested.(type) {
	case []T:
		if depth == 0 {
			return append([]T(nil), v...), nil
		}
	case [][]T:
		if depth == 1 {
			n := 0
			for _, row := range v {
				n += len(row)
			}
			out := make([]T, 0, n)
			for _, row := range v {
				out = append(out, row...)
			}
			return out, nil
		}
	}

	root := reflect.ValueOf(nested)
	level := []reflect.Value{root}
	for d := 0; d <= depth; d++ {
		next := make([]reflect.Value, 0, len(level))
		for _, v := range level {
			v = indirect(v)
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
				return nil, fmt.Errorf("flatten: level %d holds %s, want slice", d, v.Kind())
			}
			for i := 0; i < v.Len(); i++ {
				next = append(next, v.Index(i))
			}
		}
		level = next
	}

	out := make([]T, 0, len(level))
	for i, v := range level {
		leaf, ok := indirect(v).Interface().(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("flatten: leaf %d is %s, want %T", i, indirect(v).Type(), zero)
		}
		out = append(out, leaf)
	}
	return out, nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v
		}
		v = v.Elem()
	}
	return v
}

// DepthToBytes splits 16-bit depth samples into little-endian byte pairs
// (low byte first), two entries per pixel.
func DepthToBytes(samples []uint16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], s)
	}
	return out
}

// SwapBytePairs reverses the byte order of every 16-bit entry in place.
func SwapBytePairs(b []byte) error {
	if len(b)%2 != 0 {
		return fmt.Errorf("%w: odd length %d for 16-bit samples", ErrProtocolMismatch, len(b))
	}
	for i := 0; i < len(b); i += 2 {
		b[i], b[i+1] = b[i+1], b[i]
	}
	return nil
}

// StripAlpha drops every fourth byte of an RGBA buffer.
func StripAlpha(rgba []byte) ([]byte, error) {
	if len(rgba)%4 != 0 {
		return nil, fmt.Errorf("%w: rgba length %d is not a multiple of 4", ErrProtocolMismatch, len(rgba))
	}
	out := make([]byte, 0, len(rgba)/4*3)
	for i := 0; i < len(rgba); i += 4 {
		out = append(out, rgba[i], rgba[i+1], rgba[i+2])
	}
	return out, nil
}

// Unstride copies rows of rowBytes bytes out of a buffer whose rows start
// every stride bytes, dropping the row padding.
//
// The bounds are checked by division so header values near the integer
// limits are rejected instead of wrapping.
func Unstride(buf []byte, rows, rowBytes, stride int) ([]byte, error) {
	if rows < 0 || rowBytes < 0 {
		return nil, fmt.Errorf("%w: negative geometry rows %d row %d", ErrProtocolMismatch, rows, rowBytes)
	}
	if stride < rowBytes {
		return nil, fmt.Errorf("%w: stride %d shorter than row %d", ErrProtocolMismatch, stride, rowBytes)
	}
	if rows == 0 || rowBytes == 0 {
		return []byte{}, nil
	}
	if rowBytes > len(buf) || rows-1 > (len(buf)-rowBytes)/stride {
		return nil, fmt.Errorf("%w: buffer of %d bytes too short for %d rows of stride %d",
			ErrProtocolMismatch, len(buf), rows, stride)
	}
	if stride == rowBytes {
		return append([]byte(nil), buf[:rows*rowBytes]...), nil
	}
	out := make([]byte, 0, rows*rowBytes)
	for r := 0; r < rows; r++ {
		start := r * stride
		out = append(out, buf[start:start+rowBytes]...)
	}
	return out, nil
}
