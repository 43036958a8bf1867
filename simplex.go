/*
 *  simplex.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/10/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Minimum is the outcome of one minimization
type Minimum struct {
	X          []float64
	F          float64
	Iterations int
	Converged  bool
}

// simplexConverger stops Nelder-Mead once the simplex is smaller than Tol.
// The simplex is tracked through the last dim+1 distinct points the method
// evaluated, its size is their mean distance to the centroid.
type simplexConverger struct {
	Tol float64

	dim    int
	recent [][]float64
}

// Init is called at the start of every minimization
func (c *simplexConverger) Init(dim int) {
	c.dim = dim
	c.recent = c.recent[:0]
}

// observe records a point handed to the objective
func (c *simplexConverger) observe(x []float64) {
	if n := len(c.recent); n > 0 && floats.Equal(x, c.recent[n-1]) {
		return
	}
	c.recent = append(c.recent, append([]float64(nil), x...))
	if len(c.recent) > c.dim+1 {
		c.recent = c.recent[1:]
	}
}

// Size is the current simplex size, +Inf until dim+1 points were seen
func (c *simplexConverger) Size() float64 {
	if len(c.recent) < c.dim+1 {
		return math.Inf(1)
	}
	return spread(c.recent)
}

// Converged is checked after each major iteration
func (c *simplexConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.Size() < c.Tol {
		return optimize.FunctionConvergence
	}
	return optimize.NotTerminated
}

// spread is the mean distance of the points to their centroid
func spread(points [][]float64) float64 {
	centroid := make([]float64, len(points[0]))
	for _, p := range points {
		floats.Add(centroid, p)
	}
	floats.Scale(1/float64(len(points)), centroid)
	d := 0.0
	for _, p := range points {
		d += floats.Distance(p, centroid, 2)
	}
	return d / float64(len(points))
}

// project moves x into box in place, a nil box leaves x alone
func project(x []float64, box [][2]float64) []float64 {
	for i := range box {
		x[i] = math.Max(box[i][0], math.Min(box[i][1], x[i]))
	}
	return x
}

// Simplex minimizes f from x0 with the Nelder-Mead method. Trial points
// outside box are evaluated at their projection onto it, so the simplex can
// slide along a boundary optimum instead of bouncing off it.
func Simplex(f func([]float64) float64, x0 []float64, box [][2]float64, step, tol float64,
	maxIter int) (*Minimum, error) {
	conv := &simplexConverger{Tol: tol}
	buf := make([]float64, len(x0))
	problem := optimize.Problem{Func: func(x []float64) float64 {
		conv.observe(x)
		copy(buf, x)
		return f(project(buf, box))
	}}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		Converger:       conv,
	}
	method := &optimize.NelderMead{SimplexSize: step}
	res, err := optimize.Minimize(problem, x0, settings, method)
	if res == nil {
		return nil, err
	}
	m := &Minimum{
		X:          project(res.X, box),
		F:          res.F,
		Iterations: res.MajorIterations,
		Converged:  res.Status == optimize.FunctionConvergence,
	}
	if err != nil && res.Status != optimize.IterationLimit {
		log.Warningf("Simplex stopped early (%v)", err)
	}
	return m, nil
}
