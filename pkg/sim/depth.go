package sim

import "math"

// DepthToUint16 rescales a normalized depth value to the 16-bit range,
// truncating and clamping to [0, 65535]. NaN maps to 0.
func DepthToUint16(v float64) uint16 {
	x := v * 65535
	switch {
	case math.IsNaN(x) || x <= 0:
		return 0
	case x >= 65535:
		return 65535
	}
	return uint16(x)
}
