/*
 *  pairer.go
 *  mlrho
 *
 *  Created by Haibao Tang on 03/04/20
 *  Copyright © 2020 Haibao Tang. All rights reserved.
 */

package mlrho

import (
	"io"

	"github.com/pkg/errors"
)

// ErrPositionOrder flags a site that does not come after its predecessor
var ErrPositionOrder = errors.New("positions not strictly ascending")

// Pairer finds all pairs of sites separated by a distance in [MinD, MaxD]
// from a stream of sites sorted by position. Only sites within MaxD of the
// latest site are kept, so memory does not grow with the contig.
type Pairer struct {
	MinD    int
	MaxD    int
	MinCov  int
	Stride  int  // when > 1 only left sites at multiples of Stride from the contig start pair
	Lenient bool // turn position regressions into warnings

	window   []Site // ring buffer
	head     int
	size     int
	start    int
	lastPos  int
	started  bool
	anchored bool
	peak     int
	out      []Pair
}

// NewPairer returns a pairer for distances between minD and maxD inclusive
func NewPairer(minD, maxD, minCov int) *Pairer {
	return &Pairer{
		MinD:   minD,
		MaxD:   maxD,
		MinCov: minCov,
		window: make([]Site, 16),
	}
}

// Reset empties the window at a contig boundary. The stride counts from
// the first site pushed afterwards.
func (r *Pairer) Reset() {
	r.head, r.size = 0, 0
	r.started, r.anchored = false, false
}

// ResetAt empties the window for a contig starting at start, the origin of
// the stride even when that site is not pushed
func (r *Pairer) ResetAt(start int) {
	r.Reset()
	r.start, r.anchored = start, true
}

// Len is the current number of sites in the window
func (r *Pairer) Len() int {
	return r.size
}

// Peak is the largest window seen so far
func (r *Pairer) Peak() int {
	return r.peak
}

// Push adds the next site of the current contig and returns the pairs it
// closes, in order of the left position. The returned slice is only valid
// until the next call.
func (r *Pairer) Push(s Site) ([]Pair, error) {
	r.out = r.out[:0]
	if r.started && s.Pos <= r.lastPos {
		err := errors.Wrapf(ErrPositionOrder, "position %d follows %d", s.Pos, r.lastPos)
		if !r.Lenient {
			return nil, err
		}
		log.Warningf("%v, site kept as an empty placeholder", err)
		return r.out, nil
	}
	if !r.started {
		if !r.anchored {
			r.start = s.Pos
		}
		r.started = true
	}
	r.lastPos = s.Pos

	for r.size > 0 && s.Pos-r.at(0).Pos > r.MaxD {
		r.pop()
	}
	if s.Profile.Coverage() < r.MinCov {
		return r.out, nil
	}
	for i := 0; i < r.size; i++ {
		left := r.at(i)
		if s.Pos-left.Pos < r.MinD {
			break
		}
		if r.Stride > 1 && (left.Pos-r.start)%r.Stride != 0 {
			continue
		}
		r.out = append(r.out, Pair{Left: left, Right: s})
	}
	r.push(s)
	return r.out, nil
}

func (r *Pairer) at(i int) Site {
	return r.window[(r.head+i)%len(r.window)]
}

func (r *Pairer) pop() {
	r.head = (r.head + 1) % len(r.window)
	r.size--
}

func (r *Pairer) push(s Site) {
	if r.size == len(r.window) {
		grown := make([]Site, 2*len(r.window))
		for i := 0; i < r.size; i++ {
			grown[i] = r.at(i)
		}
		r.window, r.head = grown, 0
	}
	r.window[(r.head+r.size)%len(r.window)] = s
	r.size++
	if r.size > r.peak {
		r.peak = r.size
	}
}

// CollectPairs aggregates all pairs of src at distances in [lo, hi] into a
// tree labelled with distance lo
func CollectPairs(src SiteReader, lo, hi int, cfg *Config) (*ProfileTree, error) {
	p := NewPairer(lo, hi, cfg.MinCov)
	p.Stride = cfg.Stride
	p.Lenient = cfg.Lenient
	t := NewProfileTree(lo)
	contig := ""
	for {
		rec, err := src.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec.Header {
			contig = rec.Contig
			if rec.Start > 0 {
				p.ResetAt(rec.Start)
			} else {
				p.Reset()
			}
			continue
		}
		pairs, err := p.Push(rec.Site)
		if err != nil {
			return nil, errors.Wrap(err, contig)
		}
		for _, pair := range pairs {
			t.AddPair(pair)
		}
	}
	log.Debugf("d=%d: %d pairs, %d distinct, window peak %d", lo, t.Total(), t.Len(), p.Peak())
	return t, nil
}
