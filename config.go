/*
 *  config.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/06/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"math"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the knobs of one analysis
type Config struct {
	// MinCov is the minimum coverage of a site
	MinCov int
	// MinDist, MaxDist and Step define the distances of the linkage analysis.
	// MaxDist 0 skips the linkage analysis, a negative MaxDist means all.
	MinDist int
	MaxDist int
	Step    int
	// Lump pools the distances [d, d+Step) into one estimate
	Lump bool
	// Stride restricts pairs to left sites at multiples of Stride, for
	// simulated site pairs
	Stride int
	// Lenient turns position regressions into warnings
	Lenient bool

	IniTheta   float64
	IniEpsilon float64
	IniDelta   float64
	IniRho     float64
	StepSize   float64
	Threshold  float64
	MaxIter    int

	// DeltaMode estimates delta instead of rho
	DeltaMode bool
	// Full re-estimates theta and epsilon at every distance
	Full bool

	// Genetic algorithm to seed the simplex
	RunGA   bool
	Seed    int64
	NPop    int
	NGen    int
	MutProb float64

	// Threads runs that many distances at once
	Threads int

	// BAM pileup filters
	MinMapQ  int
	MinBaseQ int

	// SaveLik persists the single-site likelihoods next to the input
	SaveLik bool
	// StartOver ignores cached index and likelihood files
	StartOver bool
}

// DefaultConfig returns the standard settings
func DefaultConfig() *Config {
	return &Config{
		MinCov:     MinCov,
		MinDist:    1,
		MaxDist:    -1,
		Step:       DefaultStep,
		Stride:     1,
		IniTheta:   IniTheta,
		IniEpsilon: IniEpsilon,
		IniDelta:   IniDelta,
		IniRho:     IniRho,
		StepSize:   StepSize,
		Threshold:  Threshold,
		MaxIter:    MaxIter,
		Seed:       42,
		NPop:       50,
		NGen:       100,
		MutProb:    0.2,
		Threads:    1,
		MinMapQ:    1,
		MinBaseQ:   0,
	}
}

// Validate rejects settings that cannot work
func (c *Config) Validate() error {
	switch {
	case c.MinCov < 1:
		return errors.Errorf("minimum coverage must be positive, got %d", c.MinCov)
	case c.MinDist < 1:
		return errors.Errorf("minimum distance must be positive, got %d", c.MinDist)
	case c.MaxDist > 0 && c.MaxDist < c.MinDist:
		return errors.Errorf("maximum distance %d below minimum distance %d", c.MaxDist, c.MinDist)
	case c.Step < 1:
		return errors.Errorf("distance step must be positive, got %d", c.Step)
	case c.Stride < 1:
		return errors.Errorf("stride must be positive, got %d", c.Stride)
	case c.StepSize <= 0 || c.Threshold <= 0:
		return errors.New("step size and threshold must be positive")
	case c.MaxIter < 1:
		return errors.Errorf("iterations must be positive, got %d", c.MaxIter)
	case c.IniTheta < 0 || c.IniTheta > 1 || c.IniEpsilon < 0 || c.IniEpsilon > 1:
		return errors.New("initial theta and epsilon must lie in [0, 1]")
	case math.Abs(c.IniDelta) > 1:
		return errors.New("initial delta must lie in [-1, 1]")
	case c.IniRho < 0:
		return errors.New("initial rho must not be negative")
	case c.Threads < 1:
		return errors.Errorf("threads must be positive, got %d", c.Threads)
	case c.RunGA && (c.NPop < 1 || c.NGen < 1):
		return errors.New("population and generations must be positive")
	}
	return nil
}

// Distances lists the first distance of every linkage pass up to span, the
// largest distance observed in the data
func (c *Config) Distances(span int) []int {
	last := span
	if c.MaxDist >= 0 {
		last = min(c.MaxDist, span)
	}
	var ds []int
	for d := c.MinDist; d <= last; d += c.Step {
		ds = append(ds, d)
	}
	return ds
}

// Window is the range of distances pooled at distance d, never past a
// positive MaxDist
func (c *Config) Window(d int) (int, int) {
	if !c.Lump {
		return d, d
	}
	hi := d + c.Step - 1
	if c.MaxDist > 0 {
		hi = min(hi, c.MaxDist)
	}
	return d, hi
}

func isBam(filename string) bool {
	return strings.EqualFold(path.Ext(filename), ".bam")
}
