// Package interp implements scalar and element-wise linear interpolation.
package interp

import (
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
)

// Linear returns y at x on the line through (x0, y0) and (x1, y1).
// x outside [x0, x1] extrapolates. x0 == x1 is an arithmetic error.
func Linear(x0, y0, x1, y1, x float64) (float64, error) {
	if x0 == x1 {
		return 0, errs.Arithmetic("x0 == x1 (%g)", x0)
	}
	return y0 + (x-x0)*(y1-y0)/(x1-x0), nil
}

// Curve applies Linear independently at every index of c0 and c1.
// Both curves share one IML axis, so a length mismatch is rejected rather
// than truncated.
func Curve(x0 float64, c0 []float64, x1 float64, c1 []float64, x float64) ([]float64, error) {
	if len(c0) != len(c1) {
		return nil, errs.DataIntegrity("curve length mismatch: %d != %d", len(c0), len(c1))
	}
	if x0 == x1 {
		return nil, errs.Arithmetic("x0 == x1 (%g)", x0)
	}

	out := make([]float64, len(c0))
	for i := range c0 {
		y, err := Linear(x0, c0[i], x1, c1[i], x)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return out, nil
}
