/*
 *  ga.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/12/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"math/rand"

	"github.com/MaxHalford/eaopt"
)

// seedBox is where the initial population of each parameter is drawn
var seedBox = [...][2]float64{
	Theta:   {0, 0.1},
	Epsilon: {0, 0.05},
	Delta:   {-1, 1},
	Rho:     {0, 100},
}

// mutScale is the standard deviation of a mutation relative to the width of
// the seed box
const mutScale = 0.1

// Candidate is a vector of free parameters evolved by the genetic algorithm
type Candidate struct {
	X       []float64
	f       func([]float64) float64
	mutProb float64
	sd      []float64    // mutation step per parameter
	domain  [][2]float64 // mutants are projected back into it
}

// NewCandidate wraps x as a genome of the free parameters of o
func NewCandidate(o *Objective, x []float64, mutProb float64) *Candidate {
	sd := make([]float64, len(o.Free))
	for i, p := range o.Free {
		sd[i] = (seedBox[p][1] - seedBox[p][0]) * mutScale
	}
	return &Candidate{X: x, f: o.Eval, mutProb: mutProb, sd: sd, domain: o.Box()}
}

// Evaluate is the negated log-likelihood
func (c *Candidate) Evaluate() (float64, error) {
	return c.f(c.X), nil
}

// Mutate adds normal noise, scaled to each parameter, to some of the
// parameters
func (c *Candidate) Mutate(rng *rand.Rand) {
	for i := range c.X {
		if rng.Float64() < c.mutProb {
			c.X[i] += rng.NormFloat64() * c.sd[i]
		}
	}
	project(c.X, c.domain)
}

// Crossover swaps parameters with another candidate
func (c *Candidate) Crossover(q eaopt.Genome, rng *rand.Rand) {
	eaopt.CrossUniformFloat64(c.X, q.(*Candidate).X, rng)
}

// Clone copies the candidate
func (c *Candidate) Clone() eaopt.Genome {
	return &Candidate{
		X:       append([]float64(nil), c.X...),
		f:       c.f,
		mutProb: c.mutProb,
		sd:      c.sd,
		domain:  c.domain,
	}
}

// GASeed searches the free parameters globally and returns the best point
// if it beats x0
func GASeed(o *Objective, x0 []float64, cfg *Config) ([]float64, error) {
	conf := eaopt.NewDefaultGAConfig()
	conf.NGenerations = uint(cfg.NGen)
	conf.PopSize = uint(cfg.NPop)
	conf.RNG = rand.New(rand.NewSource(cfg.Seed))
	conf.ParallelEval = false
	ga, err := conf.NewGA()
	if err != nil {
		return x0, err
	}

	factory := func(rng *rand.Rand) eaopt.Genome {
		x := make([]float64, len(o.Free))
		for i, p := range o.Free {
			lo, hi := seedBox[p][0], seedBox[p][1]
			x[i] = lo + rng.Float64()*(hi-lo)
		}
		return NewCandidate(o, x, cfg.MutProb)
	}
	if err = ga.Minimize(factory); err != nil {
		return x0, err
	}
	best := ga.HallOfFame[0]
	log.Noticef("GA best -log(L) %.4f after %d generations", best.Fitness, ga.Generations)
	if best.Fitness < o.Eval(x0) {
		return best.Genome.(*Candidate).X, nil
	}
	return x0, nil
}
