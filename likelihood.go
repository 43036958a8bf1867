/*
 *  likelihood.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/08/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"math"
)

// Frequencies are the nucleotide frequencies of A, C, G and T
type Frequencies [4]float64

// Heterozygosity is the chance that two random alleles differ
func (f Frequencies) Heterozygosity() float64 {
	s := 1.0
	for _, x := range f {
		s -= x * x
	}
	return s
}

// Model holds what stays fixed while the parameters are optimized: the
// nucleotide frequencies and a table of log factorials.
type Model struct {
	Freq   Frequencies
	s      float64
	lnFact []float64
}

// NewModel prepares a model for profiles of coverage up to maxCov
func NewModel(f Frequencies, maxCov int) *Model {
	m := &Model{Freq: f, s: f.Heterozygosity()}
	m.grow(maxCov)
	return m
}

func (m *Model) grow(maxCov int) {
	for n := len(m.lnFact); n <= maxCov; n++ {
		lg, _ := math.Lgamma(float64(n) + 1)
		m.lnFact = append(m.lnFact, lg)
	}
}

// multinomial is the number of read orders that give the profile
func (m *Model) multinomial(p Profile) float64 {
	ln := m.lnFactorial(p.Coverage())
	for _, c := range p {
		ln -= m.lnFactorial(c)
	}
	return math.Exp(ln)
}

// lnFactorial reads the table without growing it, the model is shared
// between goroutines
func (m *Model) lnFactorial(n int) float64 {
	if n < len(m.lnFact) {
		return m.lnFact[n]
	}
	lg, _ := math.Lgamma(float64(n) + 1)
	return lg
}

// LOne is the probability of the profile at a homozygous site
func (m *Model) LOne(p Profile, ee float64) float64 {
	cov := p.Coverage()
	e3 := ee / 3
	l := 0.0
	for i, c := range p {
		if m.Freq[i] == 0 {
			continue
		}
		l += m.Freq[i] * math.Pow(1-ee, float64(c)) * math.Pow(e3, float64(cov-c))
	}
	return l * m.multinomial(p)
}

// LTwo is the probability of the profile at a heterozygous site. Each
// unordered allele pair carries weight 2 f_i f_j / S.
func (m *Model) LTwo(p Profile, ee float64) float64 {
	if m.s <= 0 {
		return 0
	}
	cov := p.Coverage()
	e3 := ee / 3
	x := (1 - 2*e3) / 2
	l := 0.0
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			w := 2 * m.Freq[i] * m.Freq[j] / m.s
			if w == 0 {
				continue
			}
			c := p[i] + p[j]
			l += w * math.Pow(x, float64(c)) * math.Pow(e3, float64(cov-c))
		}
	}
	return l * m.multinomial(p)
}

// SiteTerms holds the homozygous (L1) and heterozygous (L2) likelihood of
// one profile
type SiteTerms struct {
	L1, L2 float64
}

// Terms computes both site likelihoods of a profile
func (m *Model) Terms(p Profile, ee float64) SiteTerms {
	return SiteTerms{m.LOne(p, ee), m.LTwo(p, ee)}
}

// SiteLikelihood mixes the homozygous and heterozygous terms
func SiteLikelihood(l1, l2, theta float64) float64 {
	return l1*(1-theta) + l2*theta
}

// Zygosity returns the chance that both sites of a pair are homozygous (h0)
// and that both are heterozygous (h2)
func Zygosity(theta, delta float64) (h0, h2 float64) {
	d := (1 + theta) * (1 + theta)
	h0 = (1 + delta*theta) / d
	h2 = (theta*theta + delta*theta) / d
	return
}

// PairLikelihood mixes the single-site terms of two sites
func PairLikelihood(h0, h2 float64, a, b SiteTerms) float64 {
	h1 := (1 - h0 - h2) / 2
	return h0*a.L1*b.L1 + h2*a.L2*b.L2 + h1*(a.L1*b.L2+a.L2*b.L1)
}

// DeltaFromRho maps the recombination parameter onto delta
func DeltaFromRho(theta, rho float64) float64 {
	t, r := theta, rho
	t2, t3 := t*t, t*t*t
	num := t * (18 + r + 18*t + r*t + 4*t2)
	den := 18 + 13*r + r*r + 54*t + 40*t2 + 8*t3 + r*(r*t+19*t+6*t2)
	return num / den
}

// RhoFromDelta inverts DeltaFromRho
func RhoFromDelta(theta, delta float64) float64 {
	t, d := theta, delta
	t2, t3 := t*t, t*t*t
	root := math.Sqrt(1+t) *
		math.Sqrt(t2*(1+t)+2*d*t*(23+17*t+2*t2)+d*d*(97+109*t+32*t2+4*t3))
	return (t + t2 - d*(13+19*t+6*t2) + root) / (2 * d * (1 + t))
}

// safeLog floors the log of non-positive likelihoods
func safeLog(l float64) float64 {
	if !(l > 0) {
		return logFloor
	}
	return math.Log(l)
}

// inUnit tells if x lies in [0, 1]
func inUnit(x float64) bool {
	return x >= 0 && x <= 1
}

// SingleLogLik sums the site log-likelihoods over a single-site tree
func (m *Model) SingleLogLik(t *ProfileTree, theta, ee float64) float64 {
	ll := 0.0
	t.Walk(func(e *Entry) {
		l := SiteLikelihood(m.LOne(e.A, ee), m.LTwo(e.A, ee), theta)
		ll += float64(e.Count) * safeLog(l)
	})
	return ll
}

// PairLogLik sums the pair log-likelihoods over a pair tree
func (m *Model) PairLogLik(t *ProfileTree, theta, ee, delta float64) float64 {
	h0, h2 := Zygosity(theta, delta)
	ll := 0.0
	t.Walk(func(e *Entry) {
		l := PairLikelihood(h0, h2, m.Terms(e.A, ee), m.Terms(e.B, ee))
		ll += float64(e.Count) * safeLog(l)
	})
	return ll
}

// pairTable caches the site terms of every entry of a pair tree for a fixed
// error rate, so only the mixture is recomputed. cache is only read.
type pairTable struct {
	counts []float64
	a, b   []SiteTerms
}

func (m *Model) pairTable(t *ProfileTree, ee float64, cache map[Key]SiteTerms) *pairTable {
	entries := t.Entries()
	pt := &pairTable{
		counts: make([]float64, len(entries)),
		a:      make([]SiteTerms, len(entries)),
		b:      make([]SiteTerms, len(entries)),
	}
	lookup := func(p Profile) SiteTerms {
		if st, ok := cache[ProfileKey(p)]; ok {
			return st
		}
		return m.Terms(p, ee)
	}
	for i, e := range entries {
		pt.counts[i] = float64(e.Count)
		pt.a[i] = lookup(e.A)
		pt.b[i] = lookup(e.B)
	}
	return pt
}

func (pt *pairTable) logLik(theta, delta float64) float64 {
	h0, h2 := Zygosity(theta, delta)
	ll := 0.0
	for i, n := range pt.counts {
		ll += n * safeLog(PairLikelihood(h0, h2, pt.a[i], pt.b[i]))
	}
	return ll
}

// Param names a free parameter
type Param int

const (
	// Theta is the heterozygosity
	Theta Param = iota
	// Epsilon is the sequencing error rate
	Epsilon
	// Delta is the zygosity association
	Delta
	// Rho is the recombination parameter
	Rho
)

var paramNames = [...]string{"theta", "epsilon", "delta", "rho"}

func (p Param) String() string {
	return paramNames[p]
}

// InDomain tells if x is a legal value of the parameter
func (p Param) InDomain(x float64) bool {
	switch p {
	case Theta, Epsilon:
		return inUnit(x)
	case Delta:
		return x >= -1 && x <= 1
	case Rho:
		return x >= 0 && !math.IsInf(x, 1)
	}
	return false
}

// Domain is the interval searched for the parameter
func (p Param) Domain() (lo, hi float64) {
	switch p {
	case Theta, Epsilon:
		return 0, 1
	case Delta:
		return -1, 1
	}
	return 0, MaxRho
}

// Objective is a negated log-likelihood over a tree. Point holds the
// current value of every parameter; Free lists those that the optimizer
// moves, in the order of the vectors passed to Eval.
type Objective struct {
	Point [4]float64
	Free  []Param
	Link  Param

	model *Model
	tree  *ProfileTree
	pairs *pairTable
}

// NewSingleObjective fits theta and epsilon to single sites
func NewSingleObjective(m *Model, t *ProfileTree, theta, ee float64) *Objective {
	return &Objective{
		Point: [4]float64{theta, ee, 0, 0},
		Free:  []Param{Theta, Epsilon},
		Link:  Delta,
		model: m,
		tree:  t,
	}
}

// NewPairObjective fits the linkage parameter, and theta and epsilon too
// when full is set. link is either Delta or Rho.
func NewPairObjective(m *Model, t *ProfileTree, link Param, full bool, point [4]float64,
	cache map[Key]SiteTerms) *Objective {
	o := &Objective{Point: point, Link: link, model: m, tree: t}
	if full {
		o.Free = []Param{Theta, Epsilon, link}
	} else {
		o.Free = []Param{link}
		o.pairs = m.pairTable(t, point[Epsilon], cache)
	}
	return o
}

// Values returns the free parameters of the current point
func (o *Objective) Values() []float64 {
	x := make([]float64, len(o.Free))
	for i, p := range o.Free {
		x[i] = o.Point[p]
	}
	return x
}

// Box lists the domains of the free parameters
func (o *Objective) Box() [][2]float64 {
	box := make([][2]float64, len(o.Free))
	for i, p := range o.Free {
		box[i][0], box[i][1] = p.Domain()
	}
	return box
}

// Eval returns the negated log-likelihood at x, or math.MaxFloat64 when any
// parameter is out of its domain
func (o *Objective) Eval(x []float64) float64 {
	pt := o.Point
	for i, p := range o.Free {
		if !p.InDomain(x[i]) {
			return math.MaxFloat64
		}
		pt[p] = x[i]
	}
	return -o.logLik(pt)
}

// LogLik evaluates the log-likelihood at a full point
func (o *Objective) LogLik(pt [4]float64) float64 {
	for _, p := range o.Free {
		if !p.InDomain(pt[p]) {
			return -math.MaxFloat64
		}
	}
	return o.logLik(pt)
}

func (o *Objective) linked() bool {
	return o.tree.Distance > 0
}

func (o *Objective) delta(pt [4]float64) float64 {
	if o.Link == Rho {
		return DeltaFromRho(pt[Theta], pt[Rho])
	}
	return pt[Delta]
}

func (o *Objective) logLik(pt [4]float64) float64 {
	if !o.linked() {
		return o.model.SingleLogLik(o.tree, pt[Theta], pt[Epsilon])
	}
	if o.pairs != nil {
		return o.pairs.logLik(pt[Theta], o.delta(pt))
	}
	return o.model.PairLogLik(o.tree, pt[Theta], pt[Epsilon], o.delta(pt))
}
