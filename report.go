/*
 *  report.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/16/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"fmt"
	"math"
)

const (
	headerPi    = "d\tn\ttheta\t\t\t\tepsilon\t\t\t\t-log(L)\n"
	headerDelta = "d\tn\ttheta\t\t\t\tepsilon\t\t\t\t-log(L)\t\tdelta\t\t\t\trho=f(delta)\n"
	headerRho   = "d\tn\ttheta\t\t\t\tepsilon\t\t\t\t-log(L)\t\trho\n"

	// columns left empty when theta and epsilon are not refitted
	skipped = "\t\t\t\t\t\t\t\t"
)

// Header picks the table header for the configured analysis
func Header(cfg *Config) string {
	switch {
	case cfg.MaxDist == 0:
		return headerPi
	case cfg.DeltaMode:
		return headerDelta
	}
	return headerRho
}

func (b Bound) String() string {
	return fmt.Sprintf("%8.2e<%8.2e<%8.2e", b.Lo, b.Est, b.Up)
}

// scale divides a bound by the distance to get a per-base rate
func (b Bound) scale(d float64) Bound {
	return Bound{b.Lo / d, b.Est / d, b.Up / d}
}

// Format renders the result as one table row. span is the distance the
// linkage estimates are divided by.
func (r *Result) Format(span float64) string {
	lead := fmt.Sprintf("%d\t%d\t", r.Distance, r.N)
	if r.Distance == 0 {
		return lead + fmt.Sprintf("%s\t%s\t%8.2e\n", r.Theta, r.Epsilon, r.NegLogLik)
	}
	single := skipped
	if r.Full {
		single = fmt.Sprintf("%s\t%s\t", r.Theta, r.Epsilon)
	}
	if r.Link == Delta {
		return lead + single + fmt.Sprintf("%8.2e\t%s\t%8.2e\n",
			r.NegLogLik, r.Delta, r.RhoFromDelta/span)
	}
	if math.IsNaN(r.Rho.Est) || math.IsInf(r.Rho.Est, 0) {
		if r.Full {
			return lead + "n/a\tn/a\tn/a\tn/a\n"
		}
		return lead + skipped + fmt.Sprintf("%8.2e\tn/a\n", r.NegLogLik)
	}
	return lead + single + fmt.Sprintf("%8.2e\t%s\n", r.NegLogLik, r.Rho.scale(span))
}
