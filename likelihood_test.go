/*
 *  likelihood_test.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/08/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho_test

import (
	"math"
	"testing"

	"github.com/tanghaibao/mlrho"
)

const eps = 1e-9

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func scenarioModel() *mlrho.Model {
	t := scenarioTree()
	return mlrho.NewModel(t.Frequencies(), t.MaxCoverage())
}

func TestSiteTerms(t *testing.T) {
	m := scenarioModel()
	hom := m.Terms(mlrho.Profile{10, 0, 0, 0}, 0.001)
	if !approx(hom.L1, 0.5445, 1e-3) {
		t.Errorf("Expected L1 of a homozygous profile near 0.5445, got %g", hom.L1)
	}
	if !approx(hom.L2, 0.00097, 2e-2) {
		t.Errorf("Expected L2 of a homozygous profile near 0.00097, got %g", hom.L2)
	}
	het := m.Terms(mlrho.Profile{5, 5, 0, 0}, 0.001)
	if het.L1 > 1e-12 {
		t.Errorf("Expected a tiny L1 of a heterozygous profile, got %g", het.L1)
	}
	if !approx(het.L2, 0.2445, 1e-3) {
		t.Errorf("Expected L2 of a heterozygous profile near 0.2445, got %g", het.L2)
	}
}

func TestSiteTermsNoError(t *testing.T) {
	m := mlrho.NewModel(mlrho.Frequencies{0.25, 0.25, 0.25, 0.25}, 8)
	// without errors a profile with three alleles cannot be explained
	st := m.Terms(mlrho.Profile{2, 2, 2, 0}, 0)
	if st.L1 != 0 || st.L2 != 0 {
		t.Fatalf("Expected zero likelihoods, got %+v", st)
	}
	st = m.Terms(mlrho.Profile{4, 0, 0, 0}, 0)
	if !approx(st.L1, 0.25, eps) {
		t.Fatalf("Expected L1 = f_A = 0.25, got %g", st.L1)
	}
}

func TestPairLikelihoodLimits(t *testing.T) {
	a := mlrho.SiteTerms{L1: 0.3, L2: 0.05}
	b := mlrho.SiteTerms{L1: 0.2, L2: 0.4}

	h0, h2 := mlrho.Zygosity(0, 0.5)
	if got := mlrho.PairLikelihood(h0, h2, a, b); !approx(got, a.L1*b.L1, eps) {
		t.Errorf("theta=0: expected %g, got %g", a.L1*b.L1, got)
	}

	h0, h2 = mlrho.Zygosity(1, -1)
	expected := 0.5 * (a.L1*b.L2 + a.L2*b.L1)
	if got := mlrho.PairLikelihood(h0, h2, a, b); !approx(got, expected, eps) {
		t.Errorf("theta=1, delta=-1: expected %g, got %g", expected, got)
	}
}

func TestZygosityIndependence(t *testing.T) {
	// without association the pair is a product of two sites
	theta := 0.01
	h0, h2 := mlrho.Zygosity(theta, 0)
	p := 1 / (1 + theta)
	if !approx(h0, p*p, eps) || !approx(h2, (1-p)*(1-p), eps) {
		t.Fatalf("Unexpected h0=%g h2=%g", h0, h2)
	}
}

func TestRhoDeltaInverse(t *testing.T) {
	for _, theta := range []float64{1e-3, 0.01, 0.1} {
		for _, rho := range []float64{0.01, 0.5, 3, 100} {
			delta := mlrho.DeltaFromRho(theta, rho)
			if delta <= 0 || delta >= 1 {
				t.Fatalf("delta(%g, %g) = %g out of (0, 1)", theta, rho, delta)
			}
			back := mlrho.RhoFromDelta(theta, delta)
			if !approx(back, rho, 1e-6) {
				t.Errorf("theta=%g: rho %g came back as %g", theta, rho, back)
			}
		}
	}
	if a, b := mlrho.DeltaFromRho(0.01, 1), mlrho.DeltaFromRho(0.01, 10); a <= b {
		t.Errorf("Expected delta to fall with rho, got %g then %g", a, b)
	}
}

func TestObjectiveDomain(t *testing.T) {
	o := mlrho.NewSingleObjective(scenarioModel(), nil, 0.01, 0.01)
	for _, x := range [][]float64{{-0.1, 0.01}, {0.01, 1.5}, {math.NaN(), 0.01}} {
		if got := o.Eval(x); got != math.MaxFloat64 {
			t.Errorf("Eval(%v) = %g, expected the largest float", x, got)
		}
	}
}

func TestParamDomain(t *testing.T) {
	tests := []struct {
		p  mlrho.Param
		x  float64
		ok bool
	}{
		{mlrho.Theta, 0, true},
		{mlrho.Theta, 1.01, false},
		{mlrho.Epsilon, -1e-9, false},
		{mlrho.Delta, -1, true},
		{mlrho.Delta, 1.2, false},
		{mlrho.Rho, 1e30, true},
		{mlrho.Rho, -0.5, false},
		{mlrho.Rho, math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := tt.p.InDomain(tt.x); got != tt.ok {
			t.Errorf("%v.InDomain(%g) = %v, expected %v", tt.p, tt.x, got, tt.ok)
		}
	}
}

func TestObjectiveFastMatchesFull(t *testing.T) {
	m := scenarioModel()
	tree := mlrho.NewProfileTree(5)
	hom := mlrho.Site{Pos: 1, Profile: mlrho.Profile{10, 0, 0, 0}}
	het := mlrho.Site{Pos: 6, Profile: mlrho.Profile{5, 5, 0, 0}}
	tree.AddPair(mlrho.Pair{Left: hom, Right: het})
	tree.AddPair(mlrho.Pair{Left: hom, Right: hom})
	tree.AddPair(mlrho.Pair{Left: het, Right: het})

	point := [4]float64{0.1, 0.001, 0.2, 1}
	fast := mlrho.NewPairObjective(m, tree, mlrho.Delta, false, point, nil)
	full := mlrho.NewPairObjective(m, tree, mlrho.Delta, true, point, nil)
	a, b := fast.LogLik(point), full.LogLik(point)
	if !approx(a, b, 1e-12) {
		t.Fatalf("Fast %g and full %g log-likelihoods differ", a, b)
	}
	if got := fast.Eval([]float64{0.2}); !approx(got, -a, 1e-12) {
		t.Fatalf("Expected Eval to negate the log-likelihood, got %g and %g", got, a)
	}
}
