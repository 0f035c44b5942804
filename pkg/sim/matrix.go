package sim

import "math"

// ViewMatrix returns the column-major look-at matrix for a camera at eye
// looking at target.
func ViewMatrix(eye, target, up Vec3) [16]float32 {
	f := normalize(sub(target, eye))
	s := normalize(cross(f, up))
	u := cross(s, f)

	return [16]float32{
		float32(s[0]), float32(u[0]), float32(-f[0]), 0,
		float32(s[1]), float32(u[1]), float32(-f[1]), 0,
		float32(s[2]), float32(u[2]), float32(-f[2]), 0,
		float32(-dot(s, eye)), float32(-dot(u, eye)), float32(dot(f, eye)), 1,
	}
}

// ProjectionMatrixFOV returns the column-major perspective projection for
// a vertical field of view in degrees.
func ProjectionMatrixFOV(fov, aspect, near, far float64) [16]float32 {
	yScale := 1 / math.Tan(fov*math.Pi/360)
	xScale := yScale / aspect
	nmf := near - far

	return [16]float32{
		float32(xScale), 0, 0, 0,
		0, float32(yScale), 0, 0,
		0, 0, float32((far + near) / nmf), -1,
		0, 0, float32(2 * far * near / nmf), 0,
	}
}

func sub(a, b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dot(a, b Vec3) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// normalize returns the zero vector unchanged.
func normalize(v Vec3) Vec3 {
	n := math.Sqrt(dot(v, v))
	if n == 0 {
		return v
	}
	return Vec3{v[0] / n, v[1] / n, v[2] / n}
}
