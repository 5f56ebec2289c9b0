// Package uwls implements the unweighted least-squares total-vector solver,
// grounded on original_source/.../uwlsTotals.py.
//
// Radial velocities are related to the total velocity by projection of the
// eastward/northward components onto the radial heading:
//
//	speed = u*cos(heading) + v*sin(heading)
//
// or, in matrix form, speed = X*b where X's rows are [cos(heading),
// sin(heading)] (heading in radians, CCW from east) and b = [u; v]. The
// least-squares solution is b = inv(XᵀX) * Xᵀ * speed, and the geometric
// covariance C = inv(XᵀX) gives dopx = sqrt(C[0,0]), dopy = sqrt(C[1,1]),
// hdop = sqrt(C[0,0] + C[1,1]).
package uwls

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solution is the per-cell UWLS output.
type Solution struct {
	U, V       float64
	DOPX, DOPY float64
	HDOP       float64
}

// Solve computes the UWLS total-vector solution from co-indexed radial
// speeds (cm/s) and headings (degrees, CCW from east).
// It returns an error if fewer than 2 radials are supplied (the design
// matrix would be rank deficient for a 2-parameter fit) or if XᵀX is
// singular.
func Solve(speed, headingDeg []float64) (Solution, error) {
	n := len(speed)
	if n != len(headingDeg) {
		return Solution{}, fmt.Errorf("uwls.Solve: speed and heading must be co-indexed (have %d/%d)", n, len(headingDeg))
	}
	if n < 2 {
		return Solution{}, fmt.Errorf("uwls.Solve: need at least 2 radials to solve for (u, v), got %d", n)
	}

	x := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, speed)
	for i, h := range headingDeg {
		rad := h * math.Pi / 180
		x.Set(i, 0, math.Cos(rad))
		x.Set(i, 1, math.Sin(rad))
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var c mat.Dense
	if err := c.Inverse(&xtx); err != nil {
		return Solution{}, fmt.Errorf("uwls.Solve: design matrix is singular (radials are colinear in heading): %w", err)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var b mat.VecDense
	b.MulVec(&c, &xty)

	dopx := math.Sqrt(c.At(0, 0))
	dopy := math.Sqrt(c.At(1, 1))

	return Solution{
		U:    b.AtVec(0),
		V:    b.AtVec(1),
		DOPX: dopx,
		DOPY: dopy,
		HDOP: math.Sqrt(c.At(0, 0) + c.At(1, 1)),
	}, nil
}

// Valid reports whether the solution passes the post-solve masking rules:
// finite u/v, non-negative-discriminant (no complex component --
// unrepresentable in real float64 so this check is limited to finiteness,
// since a real-valued gonum solve can never produce an imaginary part),
// speed within maxRTVSpeed, and hdop within maxHDOP.
func (s Solution) Valid(maxRTVSpeed, maxHDOP float64) bool {
	if math.IsNaN(s.U) || math.IsInf(s.U, 0) || math.IsNaN(s.V) || math.IsInf(s.V, 0) {
		return false
	}
	if math.Hypot(s.U, s.V) > maxRTVSpeed {
		return false
	}
	if s.HDOP > maxHDOP {
		return false
	}
	return true
}
