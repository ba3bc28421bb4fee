// Package transform provides 2D affine spatial transforms and their file
// representation. Transforms are the second object kind the CLI wrapper
// knows how to load from and write to file paths.
package transform

import (
	"fmt"
	"math"
)

// Transform is a named 2D affine transform. The linear part is stored
// row-major as a 2x2 matrix alongside a translation vector, so a point
// (x, y) maps to (a*x + b*y + tx, c*x + d*y + ty).
type Transform struct {
	Name        string     `yaml:"name"`
	Matrix      [4]float64 `yaml:"matrix"`
	Translation [2]float64 `yaml:"translation"`
}

// Identity returns the identity transform.
func Identity() *Transform {
	return &Transform{
		Name:   "AffineTransform",
		Matrix: [4]float64{1, 0, 0, 1},
	}
}

// Translation returns a pure translation transform.
func Translation(tx, ty float64) *Transform {
	t := Identity()
	t.Translation = [2]float64{tx, ty}
	return t
}

// Rotation returns a rotation transform around the origin, angle in degrees.
func Rotation(degrees float64) *Transform {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	t := Identity()
	t.Matrix = [4]float64{cos, -sin, sin, cos}
	return t
}

// Scaling returns a scaling transform.
func Scaling(sx, sy float64) *Transform {
	t := Identity()
	t.Matrix = [4]float64{sx, 0, 0, sy}
	return t
}

// Apply maps a point through the transform.
func (t *Transform) Apply(x, y float64) (float64, float64) {
	return t.Matrix[0]*x + t.Matrix[1]*y + t.Translation[0],
		t.Matrix[2]*x + t.Matrix[3]*y + t.Translation[1]
}

// Compose returns the transform equivalent to applying t first, then next.
func (t *Transform) Compose(next *Transform) *Transform {
	a, b, c, d := next.Matrix[0], next.Matrix[1], next.Matrix[2], next.Matrix[3]
	e, f, g, h := t.Matrix[0], t.Matrix[1], t.Matrix[2], t.Matrix[3]
	tx, ty := next.Apply(t.Translation[0], t.Translation[1])
	return &Transform{
		Name: "AffineTransform",
		Matrix: [4]float64{
			a*e + b*g, a*f + b*h,
			c*e + d*g, c*f + d*h,
		},
		Translation: [2]float64{tx, ty},
	}
}

// Invert returns the inverse transform. Singular transforms return an error.
func (t *Transform) Invert() (*Transform, error) {
	a, b, c, d := t.Matrix[0], t.Matrix[1], t.Matrix[2], t.Matrix[3]
	det := a*d - b*c
	if math.Abs(det) < 1e-12 {
		return nil, fmt.Errorf("transform is singular, determinant %g", det)
	}
	inv := [4]float64{d / det, -b / det, -c / det, a / det}
	tx := -(inv[0]*t.Translation[0] + inv[1]*t.Translation[1])
	ty := -(inv[2]*t.Translation[0] + inv[3]*t.Translation[1])
	return &Transform{
		Name:        "AffineTransform",
		Matrix:      inv,
		Translation: [2]float64{tx, ty},
	}, nil
}

// IsIdentity reports whether the transform maps every point to itself.
func (t *Transform) IsIdentity() bool {
	return t.Matrix == [4]float64{1, 0, 0, 1} && t.Translation == [2]float64{0, 0}
}
