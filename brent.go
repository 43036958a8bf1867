/*
 *  brent.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/10/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrNoBracket means f has the same sign at both ends of the interval
	ErrNoBracket = errors.New("root not bracketed")
	// ErrNoConvergence means the iteration cap was hit
	ErrNoConvergence = errors.New("maximum number of iterations reached")
)

const machEps = 2.220446049250313e-16

// Brent finds a root of f inside [a, b] by Brent's method, combining
// bisection, secant and inverse quadratic interpolation. The result always
// stays inside the interval. On ErrNoConvergence the best estimate is still
// returned.
func Brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, int, error) {
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, 0, nil
	}
	if fb == 0 {
		return b, 0, nil
	}
	if (fa > 0) == (fb > 0) {
		return b, 0, ErrNoBracket
	}
	c, fc := b, fb
	var d, e float64
	for iter := 1; iter <= maxIter; iter++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*machEps*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, iter, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}
	return b, maxIter, ErrNoConvergence
}

// ExpandUp grows the interval [a, b] geometrically until f changes sign or
// b passes limit. It returns the last two points tried.
func ExpandUp(f func(float64) float64, a, b, limit float64) (float64, float64, bool) {
	fa := f(a)
	for {
		fb := f(b)
		if (fa > 0) != (fb > 0) {
			return a, b, true
		}
		if b >= limit {
			return a, limit, false
		}
		a, fa = b, fb
		b = math.Min(2*b, limit)
	}
}
