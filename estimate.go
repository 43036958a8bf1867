/*
 *  estimate.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/12/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"fmt"
	"math"
)

// Bound is a point estimate inside its confidence interval
type Bound struct {
	Lo, Est, Up float64
}

// Contains tells if x lies in the interval
func (b Bound) Contains(x float64) bool {
	return b.Lo <= x && x <= b.Up
}

// Result holds the estimates at one distance, 0 for single sites
type Result struct {
	Distance     int
	N            int
	Link         Param
	Full         bool
	Theta        Bound
	Epsilon      Bound
	Delta        Bound
	Rho          Bound
	RhoFromDelta float64
	NegLogLik    float64
	Iterations   int
	Converged    bool
	Warnings     []string
}

// LowConfidence flags results from a stalled simplex or a defaulted bound
func (r *Result) LowConfidence() bool {
	return !r.Converged || len(r.Warnings) > 0
}

func (r *Result) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("d=%d: %s", r.Distance, msg)
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) bound(p Param) *Bound {
	switch p {
	case Theta:
		return &r.Theta
	case Epsilon:
		return &r.Epsilon
	case Delta:
		return &r.Delta
	}
	return &r.Rho
}

// setPoint fills every estimate from a point, bounds collapse onto it until
// computed
func (r *Result) setPoint(pt [4]float64) {
	for p := Theta; p <= Rho; p++ {
		*r.bound(p) = Bound{pt[p], pt[p], pt[p]}
	}
}

// Estimator fits parameters to profile trees
type Estimator struct {
	Config *Config
	Model  *Model
	// Trace is told when the pipeline of a distance changes stage
	Trace func(d int, s Stage)
}

func (r *Estimator) enter(d int, s Stage) {
	if r.Trace != nil {
		r.Trace(d, s)
	}
}

// EstimateSingle fits theta and epsilon to a single-site tree
func (r *Estimator) EstimateSingle(t *ProfileTree) (*Result, error) {
	r.enter(0, StageEstimateSingle)
	o := NewSingleObjective(r.Model, t, r.Config.IniTheta, r.Config.IniEpsilon)
	res := &Result{Distance: 0, N: t.Total(), Link: Delta}
	if err := r.estimate(o, res); err != nil {
		return nil, err
	}
	return res, nil
}

// EstimateLinkage fits delta or rho to a pair tree. Theta and epsilon come
// from the single-site result, and are refitted in full mode. cache holds
// precomputed site terms at the single-site epsilon and may be nil.
func (r *Estimator) EstimateLinkage(t *ProfileTree, single *Result, cache map[Key]SiteTerms) (*Result, error) {
	cfg := r.Config
	link := Rho
	if cfg.DeltaMode {
		link = Delta
	}
	point := [4]float64{single.Theta.Est, single.Epsilon.Est, cfg.IniDelta, cfg.IniRho}
	r.enter(t.Distance, StageEstimateLinkage)
	o := NewPairObjective(r.Model, t, link, cfg.Full, point, cache)
	res := &Result{Distance: t.Distance, N: t.Total(), Link: link, Full: cfg.Full}
	if err := r.estimate(o, res); err != nil {
		return nil, err
	}
	if !cfg.Full {
		res.Theta, res.Epsilon = single.Theta, single.Epsilon
	}
	theta := res.Theta.Est
	if link == Delta {
		res.RhoFromDelta = RhoFromDelta(theta, res.Delta.Est)
	} else {
		d := DeltaFromRho(theta, res.Rho.Est)
		res.Delta = Bound{d, d, d}
	}
	return res, nil
}

// estimate runs the Estimate and ConfidenceBound stages
func (r *Estimator) estimate(o *Objective, res *Result) error {
	cfg := r.Config
	x0 := o.Values()
	if cfg.RunGA {
		seed, err := GASeed(o, x0, cfg)
		if err != nil {
			log.Warningf("GA seeding failed (%v), start from the initial values", err)
		} else {
			x0 = seed
		}
	}
	m, err := Simplex(o.Eval, x0, o.Box(), cfg.StepSize, cfg.Threshold, cfg.MaxIter)
	if err != nil {
		return err
	}
	for i, p := range o.Free {
		o.Point[p] = m.X[i]
	}
	res.setPoint(o.Point)
	res.NegLogLik = m.F
	res.Iterations = m.Iterations
	res.Converged = m.Converged
	if !m.Converged {
		res.warn("simplex did not converge in %d iterations", m.Iterations)
	}
	r.enter(res.Distance, StageConfidenceBound)
	for _, p := range o.Free {
		*res.bound(p) = r.Bound(o, p, res)
	}
	return nil
}

// searchEdges is the interval searched for the bounds of a parameter
func searchEdges(p Param, est float64) (float64, float64) {
	switch p {
	case Theta:
		return 0, math.Max(ThetaEdge, est)
	case Epsilon:
		return 0, math.Max(EpsilonEdge, est)
	case Delta:
		return -1, 1
	}
	return 0, MaxRho
}

// Bound finds the profile likelihood interval of one parameter: where the
// log-likelihood falls LRCutoff below its maximum with the other parameters
// held at the optimum.
func (r *Estimator) Bound(o *Objective, p Param, res *Result) Bound {
	cfg := r.Config
	best := o.Point
	est := best[p]
	maxLL := -res.NegLogLik
	f := func(x float64) float64 {
		pt := best
		pt[p] = x
		return o.LogLik(pt) - maxLL + LRCutoff
	}
	tol := cfg.Threshold * math.Max(1, math.Abs(est))
	loEdge, hiEdge := searchEdges(p, est)
	b := Bound{Lo: est, Est: est, Up: est}

	root := func(a, c, edge float64, side string) float64 {
		x, _, err := Brent(f, a, c, tol, cfg.MaxIter)
		switch err {
		case nil:
			return x
		case ErrNoBracket:
			res.warn("no sign change for %s %s bound, set to %g", side, p, edge)
			return edge
		}
		res.warn("%s %s bound did not converge", side, p)
		return x
	}
	if loEdge < est {
		b.Lo = root(loEdge, est, loEdge, "lower")
	}
	if p == Rho {
		a, c, ok := ExpandUp(f, est, math.Max(2*est, 1), hiEdge)
		if ok {
			b.Up = root(a, c, hiEdge, "upper")
		} else {
			res.warn("no sign change for upper %s bound, set to %g", p, hiEdge)
			b.Up = hiEdge
		}
	} else if est < hiEdge {
		b.Up = root(est, hiEdge, hiEdge, "upper")
	}
	b.Lo = math.Min(b.Lo, est)
	b.Up = math.Max(b.Up, est)
	return b
}
